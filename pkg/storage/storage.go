// Package storage holds the photo stores (local disk and S3-compatible object
// storage) plus the signer used to mint time-limited download links.
package storage

import "errors"

// ErrObjectNotFound is returned by Open when the referenced photo does not exist.
var ErrObjectNotFound = errors.New("stored object not found")
