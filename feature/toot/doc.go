// Package toot turns one archived tweet into the content object posted to
// Mastodon: entity-substituted text, language, the resolved reply target, and
// the ordered media attachment list.
//
// Reply targets resolve strictly through the operation log; a reply whose
// target was never successfully posted fails with a ResolutionError rather
// than silently posting as a top-level status.
package toot
