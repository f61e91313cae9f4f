package models

import "time"

// Document is an uploaded PDF. Content holds the extracted text; StorageURL
// points at the raw file in the object store when one is configured. Rows are
// immutable once created.
type Document struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"not null" json:"filename"`
	UploadDate time.Time `gorm:"not null;index" json:"upload_date"`
	Content    string    `json:"-"`
	StorageURL string    `json:"storage_url,omitempty"`
}

// Chat is a single turn of a document's transcript, append-only.
// IsUserMessage is true for the question turn and false for the AI answer.
type Chat struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocID         string    `gorm:"index;not null" json:"doc_id"`
	UserID        *string   `json:"user_id,omitempty"`
	Content       string    `gorm:"not null" json:"content"`
	IsUserMessage bool      `gorm:"not null" json:"is_user_message"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
}

// DocumentSummary is the listing shape; it omits the extracted text.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
}
