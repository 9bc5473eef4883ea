package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile names a main/subordinate form pair and how to merge it.
type Profile struct {
	Name         string   `yaml:"name" json:"name"`
	Main         string   `yaml:"main" json:"main"`
	Sub          string   `yaml:"sub" json:"sub"`
	ShortNames   bool     `yaml:"short_names" json:"short_names"`
	SharedFields []string `yaml:"shared_fields" json:"shared_fields,omitempty"`
}

func (p Profile) Options() Options {
	return Options{ShortNames: p.ShortNames, SharedFields: p.SharedFields}
}

type Profiles struct {
	Profiles []Profile `yaml:"profiles" json:"profiles"`
}

// LoadProfiles reads merge profiles from a YAML file. An empty path yields
// no profiles.
func LoadProfiles(path string) (Profiles, error) {
	if path == "" {
		return Profiles{}, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Profiles{}, fmt.Errorf("reading merge profiles: %w", err)
	}
	return ParseProfiles(content)
}

func ParseProfiles(content []byte) (Profiles, error) {
	var cfg Profiles
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Profiles{}, fmt.Errorf("parsing merge profiles: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Profiles))
	for i, p := range cfg.Profiles {
		if p.Name == "" || p.Main == "" || p.Sub == "" {
			return Profiles{}, fmt.Errorf("merge profile %d: name, main and sub are required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return Profiles{}, fmt.Errorf("merge profile %q defined twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return cfg, nil
}

var ErrUnknownProfile = errors.New("unknown merge profile")

func (p Profiles) Lookup(name string) (Profile, error) {
	for _, prof := range p.Profiles {
		if prof.Name == name {
			return prof, nil
		}
	}
	return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
}
