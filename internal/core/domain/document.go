package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is immutable once stored: a re-upload creates a new document with a
// fresh id, it never mutates an existing one in place.
type Document struct {
	ID        string            `json:"id"`
	Filename  string            `json:"filename"`
	FileType  string            `json:"file_type"`
	Raw       []byte            `json:"-"`
	Text      string            `json:"text,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Status    DocumentStatus    `json:"status"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DocType reads the inferred document type from metadata; empty when unknown.
func (d *Document) DocType() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	return d.Metadata["doc_type"]
}

// Chunk is the unit of embedding and retrieval. A document owns its chunks:
// chunk_index values are contiguous 0..N-1 and deleting the document deletes
// every chunk and its vector.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	VectorID   string    `json:"vector_id"`
	CreatedAt  time.Time `json:"created_at"`
}
