// Package paths provides sudo-aware path resolution for renamer.
//
// When running with sudo, these functions resolve to the original user's
// directories (via SUDO_USER) instead of root's.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeEnv overrides the application directory when set.
const HomeEnv = "RENAMER_HOME"

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// UserConfigDir returns ~/.config for the actual user.
func UserConfigDir() (string, error) {
	homeDir, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config"), nil
}

// AppDir returns the renamer state directory, ~/.config/renamer unless
// RENAMER_HOME is set.
func AppDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	configDir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "renamer"), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return inAppDir("config.toml")
}

// HistoryPath returns the path to the undo ledger.
func HistoryPath() (string, error) {
	return inAppDir("history.json")
}

// ActivityDir returns the directory holding the daily move journals.
func ActivityDir() (string, error) {
	return inAppDir("activity")
}

// LogPath returns the default log file path.
func LogPath() (string, error) {
	return inAppDir(filepath.Join("logs", "renamer.log"))
}

func inAppDir(name string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
