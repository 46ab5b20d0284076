// Package media uploads tweet attachments to the destination server.
//
// The archive bundles media at reduced resolution, so the resolver first
// tries to recover the full-resolution original (from disk, the mirror
// bucket, or the upstream media host) before falling back to the bundled
// copy. Content types are detected by sniffing the binary, never by trusting
// the file extension. Uploads accepted for asynchronous processing are polled
// on a fixed interval until the server reports them ready.
package media
