// Package archive parses an extracted Twitter archive export into normalized
// tweets ready for reconciliation.
//
// The archive's data/tweets.js file is a JavaScript assignment wrapping a
// JSON array; anything that does not match that shape is a fatal format
// error, because no partial processing of a malformed archive is safe.
// Tweets are returned sorted chronologically ascending (id descending as the
// tie-break) and carry a closed union of positional text entities: URLs,
// mentions, and media.
package archive
