// Package templates renders the HTML pages served by the web package.
//
// Pages are written as .templ files; run `templ generate` after editing them.
package templates

// UploadPageParams is the data shown on the upload page.
type UploadPageParams struct {
	// Log holds the result lines of the last batch; empty on a fresh form.
	Log []string

	// BatchID identifies the batch in server logs. Empty on a fresh form.
	BatchID string

	// MaxFileSizeMB is shown as a hint next to the file input.
	MaxFileSizeMB int64
}
