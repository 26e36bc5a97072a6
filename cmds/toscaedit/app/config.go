package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drone/envsubst"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/toscaeditor/pkg/utils"
)

const ConfigFile = ".toscaedit"

type Remote struct {
	URL      *string `json:"url,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

type Config struct {
	Root        *string `json:"root,omitempty"`
	Catalog     *string `json:"catalog,omitempty"`
	Workspace   *string `json:"workspace,omitempty"`
	User        *string `json:"user,omitempty"`
	Email       *string `json:"email,omitempty"`
	IdleTimeout *string `json:"idleTimeout,omitempty"`
	Remote      *Remote `json:"remote,omitempty"`
}

// GetConfig merges the configuration files found in the home
// directory, the user config directory and the current directory.
// Environment variables override the files.
func GetConfig() (*Config, error) {
	var cfg Config

	var paths []string
	if dir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigFile))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigFile))
	}
	paths = append(paths, ConfigFile)

	for _, p := range paths {
		add, err := ReadConfig(p)
		if err != nil {
			return nil, err
		}
		MergeConfig(&cfg, add)
	}

	env := map[string]**string{
		"TOSCAEDIT_ROOT":      &cfg.Root,
		"TOSCAEDIT_CATALOG":   &cfg.Catalog,
		"TOSCAEDIT_WORKSPACE": &cfg.Workspace,
		"TOSCAEDIT_USER":      &cfg.User,
		"TOSCAEDIT_EMAIL":     &cfg.Email,
	}
	for k, f := range env {
		if v := os.Getenv(k); v != "" {
			*f = utils.Pointer(v)
		}
	}
	return &cfg, nil
}

// ReadConfig reads a configuration file, ${VAR} references are
// substituted by environment variables. A missing file is no error.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	s, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(s), &cfg); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if cfg.IdleTimeout != nil {
		if _, err := time.ParseDuration(*cfg.IdleTimeout); err != nil {
			return nil, fmt.Errorf("config %q: invalid idle timeout: %w", path, err)
		}
	}
	return &cfg, nil
}

func MergeConfig(cfg *Config, add *Config) {
	if add == nil {
		return
	}
	merge(&cfg.Root, add.Root)
	merge(&cfg.Catalog, add.Catalog)
	merge(&cfg.Workspace, add.Workspace)
	merge(&cfg.User, add.User)
	merge(&cfg.Email, add.Email)
	merge(&cfg.IdleTimeout, add.IdleTimeout)
	if add.Remote != nil {
		if cfg.Remote == nil {
			cfg.Remote = &Remote{}
		}
		merge(&cfg.Remote.URL, add.Remote.URL)
		merge(&cfg.Remote.Username, add.Remote.Username)
		merge(&cfg.Remote.Password, add.Remote.Password)
	}
}

func merge(f **string, v *string) {
	if v != nil {
		*f = v
	}
}

func value(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
