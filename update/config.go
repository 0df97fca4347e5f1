package update

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// GitHubSpec names the repository whose releases feed an app entry.
type GitHubSpec struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// Upstream is one entry in the update config: either another source file on
// disk or a GitHub repository.
type Upstream struct {
	Source       string      `yaml:"source"`
	GitHub       *GitHubSpec `yaml:"github"`
	IDs          []string    `yaml:"ids"`
	AssetPattern string      `yaml:"asset_pattern"`
	Prereleases  bool        `yaml:"prereleases"`
	PreferDate   bool        `yaml:"prefer_date"`
}

// Config drives one update run over a source file.
type Config struct {
	// Source is the path of the AltSource JSON being maintained.
	Source string `yaml:"source"`
	// Upstreams are applied in order; a failing entry is skipped.
	Upstreams []Upstream `yaml:"upstreams"`
	// Overrides is a bundle-ID-keyed table of metadata patches applied
	// after the upstreams, using wire field names.
	Overrides map[string]map[string]any `yaml:"overrides"`
}

// LoadConfig reads and checks an update config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Source == "" {
		return nil, fmt.Errorf("config: source path is required")
	}
	for i, up := range cfg.Upstreams {
		if (up.Source == "") == (up.GitHub == nil) {
			return nil, fmt.Errorf("config: upstream %d: exactly one of source or github is required", i)
		}
		if up.GitHub != nil {
			if up.GitHub.Owner == "" || up.GitHub.Repo == "" {
				return nil, fmt.Errorf("config: upstream %d: github owner and repo are required", i)
			}
			if len(up.IDs) != 1 {
				return nil, fmt.Errorf("config: upstream %d: github upstreams take exactly one id", i)
			}
		}
		if up.AssetPattern != "" {
			if _, err := regexp.Compile(up.AssetPattern); err != nil {
				return nil, fmt.Errorf("config: upstream %d: asset_pattern: %w", i, err)
			}
		}
	}
	return &cfg, nil
}
