package config

import (
	"reflect"
	"strings"

	"toot-importer/core/identity"
	"toot-importer/core/logger"
	"toot-importer/core/mastodon"
	"toot-importer/core/media"
	"toot-importer/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the importer.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the destination Mastodon server.
	Server mastodon.Config `mapstructure:"server"`
	// Storage holds configuration for the media mirror bucket.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Identity holds configuration for the mention mapping.
	Identity identity.Config `mapstructure:"identity"`
	// Media holds configuration for media resolution and upload.
	Media media.Config `mapstructure:"media"`
	// Tweets holds configuration for archive filtering.
	Tweets TweetsConfig `mapstructure:"tweets"`
}

// TweetsConfig controls which archived tweets are offered for review.
type TweetsConfig struct {
	// IgnoredIDs are tweet ids never offered for review. Set as a
	// comma-separated list.
	IgnoredIDs []string `mapstructure:"ignored_ids" default:""`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_HOST -> server.host)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
