package domain

// RawDocument is a contract file as read from disk, before its text
// has been extracted.
type RawDocument struct {
	// URI is the original location, usually a file path.
	URI string

	// MIMEType is the detected content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
