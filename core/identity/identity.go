package identity

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds configuration for the identity mapping.
type Config struct {
	// Path is the location of the mapping TOML file. Optional; when empty
	// every mention falls back to the cross-instance convention.
	Path string `mapstructure:"path" default:""`
}

// Mapping translates a Twitter user into the handle to mention on Mastodon.
// It is a pure lookup: deterministic, no I/O after construction.
type Mapping interface {
	Map(userID, handle string) string
}

// Empty is a Mapping with no overrides; every mention resolves to the
// fallback convention.
var Empty Mapping = tableMapping{}

// tableMapping resolves by user id first, then handle, then falls back to
// "@<handle>@twitter.com" so the mention stays recognizable even when the
// account never moved.
type tableMapping struct {
	byID   map[string]string
	byName map[string]string
}

func (m tableMapping) Map(userID, handle string) string {
	if mapped, ok := m.byID[userID]; ok {
		return mapped
	}
	if mapped, ok := m.byName[handle]; ok {
		return mapped
	}
	return "@" + handle + "@twitter.com"
}

// Of builds a Mapping from explicit tables. Intended for tests and embedders.
func Of(byID, byName map[string]string) Mapping {
	return tableMapping{byID: byID, byName: byName}
}

// Load reads a mapping TOML file with [by-id] and [by-name] tables:
//
//	[by-id]
//	"124" = "@retomeier@example.com"
//
//	[by-name]
//	retomeier = "@retomeier@example.com"
func Load(cfg Config) (Mapping, error) {
	if cfg.Path == "" {
		return Empty, nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.Path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read identity mapping: %w", err)
	}

	return tableMapping{
		byID:   v.GetStringMapString("by-id"),
		byName: v.GetStringMapString("by-name"),
	}, nil
}
