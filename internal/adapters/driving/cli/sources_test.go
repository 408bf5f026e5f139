package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

func TestSourcesCmd_ListsSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.source.names = []string{"docs", "kiwix", "kiwix:wiki"}
	ts.source.local = []domain.SourceDescriptor{{Name: "docs", Kind: domain.SourceKindFilesystem, Path: "/srv/docs"}}
	ts.source.collections = []domain.Collection{{ID: "wiki", Title: "Wikipedia", Language: "eng"}}

	out, err := runRoot("sources")

	require.NoError(t, err)
	assert.Contains(t, out, "Sources:")
	assert.Regexp(t, `docs\s+filesystem  /srv/docs`, out)
	assert.Regexp(t, `kiwix\s+all Kiwix collections`, out)
	assert.Regexp(t, `kiwix:wiki\s+Wikipedia \[eng\]`, out)
}

func TestSourcesCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runRoot("sources")

	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")
}

func TestSourcesCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.source.err = errBoom

	_, err := runRoot("sources")

	assert.ErrorIs(t, err, errBoom)
}
