package sqlite

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// fileLock is a PID lock file guarding a shard against writers in other
// processes. A lock left behind by a dead process is treated as stale.
type fileLock struct {
	path string
}

// acquireLock creates the lock file at path holding our PID.
// Returns domain.ErrIndexLocked if a live process holds it.
func acquireLock(path string) (*fileLock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", errors.Join(werr, cerr))
			}
			return &fileLock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}
		if err := cleanStaleLock(path); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrIndexLocked, path)
}

// cleanStaleLock removes the lock file if its owner is no longer running.
func cleanStaleLock(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		logger.Warn("removing corrupt lock file %s", path)
		return removeLock(path)
	}

	if pid == os.Getpid() || isProcessRunning(pid) {
		return fmt.Errorf("%w: held by process %d", domain.ErrIndexLocked, pid)
	}

	logger.Warn("removing stale lock %s (process %d not running)", path, pid)
	return removeLock(path)
}

// Release removes the lock file if we still own it.
func (l *fileLock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading lock file: %w", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		return nil
	}
	return removeLock(l.path)
}

func removeLock(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
