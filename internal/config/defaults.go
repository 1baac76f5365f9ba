package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/kanatype/
//   - Linux:   $XDG_CONFIG_HOME/kanatype/ or ~/.config/kanatype/
//   - Windows: %APPDATA%\kanatype\
//
// KANATYPE_CONFIG_DIR overrides the platform path.
func PlatformConfigDir() string {
	if dir := os.Getenv("KANATYPE_CONFIG_DIR"); dir != "" {
		return dir
	}

	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "kanatype")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "kanatype")
		}
		return filepath.Join(home, "AppData", "Roaming", "kanatype")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "kanatype")
		}
		return filepath.Join(home, ".config", "kanatype")
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// SupportedConfigFormats lists the config file extensions, in lookup order.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile returns the first of ./kanatype.<ext> and
// <PlatformConfigDir>/config.<ext> that exists, or "".
func FindConfigFile() string {
	candidates := func(dir, base string) []string {
		var out []string
		for _, ext := range SupportedConfigFormats() {
			out = append(out, filepath.Join(dir, base+"."+ext))
		}
		return out
	}

	paths := append(candidates(".", "kanatype"), candidates(PlatformConfigDir(), "config")...)
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// expandPath replaces a leading ~ with the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
