// Command bunker-search indexes offline datasets and serves federated search
// over them and a Kiwix server.
package main

import (
	"os"

	"github.com/custodia-labs/bunker-search/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
