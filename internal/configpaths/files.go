package configpaths

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultConfigDir returns the configuration directory for rosettapad.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rosettapad"), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "rosettapad"), nil
	}
	return "", errors.New("HOME not set")
}

// DefaultConfigPath returns the default config file path for the given format.
func DefaultConfigPath(format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config."+extForFormat(format)), nil
}

func extForFormat(format string) string {
	switch format {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return "json"
	}
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0o755)
}

// ConfigCandidatePaths builds candidate config paths per format, in
// priority order: an explicit --config path first, then the working
// directory, then the user config dir, then /etc/rosettapad.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	wd, _ := os.Getwd()
	add(&jsonPaths, filepath.Join(wd, "rosettapad.json"))
	add(&yamlPaths, filepath.Join(wd, "rosettapad.yaml"))
	add(&yamlPaths, filepath.Join(wd, "rosettapad.yml"))
	add(&tomlPaths, filepath.Join(wd, "rosettapad.toml"))

	if dir, err := DefaultConfigDir(); err == nil {
		add(&jsonPaths, filepath.Join(dir, "config.json"))
		add(&yamlPaths, filepath.Join(dir, "config.yaml"))
		add(&yamlPaths, filepath.Join(dir, "config.yml"))
		add(&tomlPaths, filepath.Join(dir, "config.toml"))
	}

	add(&jsonPaths, filepath.Join("/etc/rosettapad", "config.json"))
	add(&yamlPaths, filepath.Join("/etc/rosettapad", "config.yaml"))
	add(&yamlPaths, filepath.Join("/etc/rosettapad", "config.yml"))
	add(&tomlPaths, filepath.Join("/etc/rosettapad", "config.toml"))

	return
}
