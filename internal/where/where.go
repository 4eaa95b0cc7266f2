// ABOUTME: Resolves application directories for config and logs
// ABOUTME: Honors TERMVID_CONFIG_PATH and falls back to the user config dir
package where

import (
	"os"
	"path/filepath"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/version"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the configuration directory
const EnvConfigPath = "TERMVID_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config returns the configuration directory, creating it if needed
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(".", ".config")
	}
	return ensureDir(filepath.Join(base, version.Binary))
}

// Logs returns the log directory, creating it if needed
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}
