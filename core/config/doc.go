// Package config provides configuration management for the importer.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: destination Mastodon server host and HTTP timeout
//   - Storage: optional S3/MinIO media mirror credentials and bucket
//   - Log: logging level and format
//   - Identity: path to the mention mapping file
//   - Media: media host, poll interval, and fetch timeout
//   - Tweets: tweet ids excluded from review
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Host)
package config
