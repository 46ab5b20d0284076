// Package oplog provides the durable operation log that records, per source
// tweet, whether it was posted (and as which Mastodon status) or explicitly
// rejected.
//
// The log is the crash-recovery anchor for the whole importer: the file on
// disk is always trusted over anything held in memory, every lookup re-reads
// the current on-disk state, and rows are appended only after the
// corresponding destination mutation has succeeded. Re-running the importer
// after an interruption therefore resumes exactly where durable decisions
// left off.
package oplog
