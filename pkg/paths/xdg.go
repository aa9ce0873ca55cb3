// Package paths provides XDG-compliant path resolution for lombridge.
//
// Resolution order:
// 1. LOMBRIDGE_HOME (portable root) → $LOMBRIDGE_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/lombridge
// 3. Platform defaults → ~/.config/lombridge, ~/.local/state/lombridge
package paths

import (
	"os"
	"path/filepath"
)

const appName = "lombridge"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("LOMBRIDGE_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("LOMBRIDGE_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the lombridge configuration directory.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the lombridge state directory.
// Used for the host pid file and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir returns the directory holding per-component log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// GlobalConfigFile returns the path of the user-wide config file.
func GlobalConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, appName+".yml")
}

// PidFilePath returns the path to the host PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "host.pid")
}

// EnsureDirs creates all lombridge directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
