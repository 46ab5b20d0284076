// Package mastodon is the importer's Mastodon API client.
//
// It covers exactly the surface the importer needs: creating, editing, and
// fetching statuses, uploading media with asynchronous processing, and the
// manual OAuth authorization-code flow with a credential persisted across
// runs. All mutating calls carry a caller-supplied idempotency key so a
// transport-level retry cannot double-create.
package mastodon
