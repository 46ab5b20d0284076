// Package identity maps Twitter users to the Mastodon handles that should be
// mentioned in migrated posts.
//
// Overrides come from a TOML file keyed by user id or by handle; anything
// without an override falls back to "@<handle>@twitter.com".
package identity
