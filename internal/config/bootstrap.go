package config

import (
	"embed"
	"errors"
	"os"
	"path/filepath"
)

//go:embed defaults/*.yaml
var defaultFiles embed.FS

// EnsureUserConfig writes the bundled config files into dataDir when they are
// missing. Existing files are never touched. It returns the paths it wrote.
func EnsureUserConfig(dataDir string) ([]string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, name := range []string{SitesFile, SearchFile} {
		userPath := filepath.Join(dataDir, name)

		_, err := os.Stat(userPath)
		if err == nil {
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return written, err
		}

		b, err := defaultFiles.ReadFile("defaults/" + name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(userPath, b, 0o644); err != nil {
			return written, err
		}
		written = append(written, userPath)
	}
	return written, nil
}

// DataDir resolves the directory holding config and ledger:
// JOBMONITOR_DATA_DIR, then the working directory.
func DataDir(lookup LookupFunc) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	if d := lookup("JOBMONITOR_DATA_DIR"); d != "" {
		return d
	}
	return "."
}
