package domain

import "time"

// Document is the read-only metadata record for an uploaded document.
// Ingestion writes it; this service only reads it for citation formatting
// and document routing.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	MimeType  string    `json:"mime_type"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTitle prefers the explicit title, falling back to the filename.
func (d Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Filename
}
