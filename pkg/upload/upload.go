// Package upload exports rendered reports to remote object storage.
package upload

import "context"

// Uploader stores rendered reports remotely.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadReport stores body under the configured prefix as name and
	// returns the object key. An empty contentType is derived from the
	// name's extension.
	UploadReport(ctx context.Context, name, contentType string, body []byte) (string, error)

	// ListReports returns the names of the reports already stored under
	// the configured prefix.
	ListReports(ctx context.Context) ([]string, error)
}
