// Package migrate drives the interactive review loop that moves archived
// tweets onto the destination server.
//
// The operation log is the single source of truth for what has already been
// reviewed. Each run walks the archive in chronological order, filters out
// tweets that can never be posted, diffs previously posted tweets against
// their live status when edits are enabled, and asks the operator to confirm
// every mutation before it happens.
package migrate
