package common

import (
	"log/slog"
	"os"
)

// MakeWorkDir creates a scratch directory under parent (the system temp dir
// when empty). The returned cleanup removes it unless keep is set; removal
// failures are logged as warnings.
func MakeWorkDir(parent, pattern string, keep bool, logger *slog.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cleanup := func() {
		if keep {
			logger.Info("keeping work directory", "path", dir)
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove work directory", "path", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}
