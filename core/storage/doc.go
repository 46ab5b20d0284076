// Package storage provides the optional S3-compatible mirror for fetched
// media originals.
//
// Twitter serves full-resolution media at URLs that may disappear; once an
// original is fetched the resolver mirrors it into a bucket so later runs
// (possibly on another machine) do not depend on the upstream copy still
// existing.
package storage
