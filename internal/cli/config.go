package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where fbctl looks for saved connection settings.
const DefaultConfigPath = "~/.fbctl.yaml"

type clientConfig struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token"`
}

// applyConfigFile fills settings that were not given as flags from the
// config file. A missing file is not an error, flags alone are enough.
func (o *RootOptions) applyConfigFile() error {
	path, err := expandPath(o.ConfigPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	cfg := &clientConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if o.Server == "" {
		o.Server = cfg.Server
	}
	if o.Token == "" {
		o.Token = cfg.Token
	}

	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
