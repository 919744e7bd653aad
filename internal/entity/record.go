package entity

import "time"

// FilenameFields are derived from a document id and never stored on their own.
type FilenameFields struct {
	FilerCode  string `json:"filer_code"`
	UploadDate string `json:"upload_date"`
}

// CombinedRecord is the joined output row for one selected document.
type CombinedRecord struct {
	DocumentID  string `json:"document_id"`
	FilerCode   string `json:"filer_code"`
	FilingDate  string `json:"filing_date"`
	Category    string `json:"category"`
	FinedAmount string `json:"fined_amount"`
	UploadDate  string `json:"upload_date"`
}

// StoredRecord is a CombinedRecord as persisted by the record store.
type StoredRecord struct {
	CombinedRecord
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StoredAt  time.Time `json:"stored_at"`
}
