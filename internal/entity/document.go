package entity

import "time"

// Document is one uploaded file within an operator session. ID is the
// original filename and is the join key across stage results; it is not
// required to be unique.
type Document struct {
	ID         string    `json:"id"`
	Size       int64     `json:"size"`
	ContentRef string    `json:"content_ref,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	Selected   bool      `json:"selected"`
}

// UploadReceipt is what the upload collaborator returns for one file.
type UploadReceipt struct {
	SessionID  string `json:"request_id"`
	ChunkCount int    `json:"chunks"`
	ContentRef string `json:"content_ref,omitempty"`
}
