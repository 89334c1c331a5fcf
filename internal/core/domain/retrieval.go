package domain

// SearchFilter restricts a nearest-neighbor search by chunk metadata.
type SearchFilter struct {
	DocType    string
	DocumentID string
}

// RetrievedFragment is transient: produced fresh per query, never persisted.
type RetrievedFragment struct {
	VectorID       string  `json:"vector_id"`
	DocumentID     string  `json:"document_id"`
	SourceFilename string  `json:"source_filename"`
	DocType        string  `json:"doc_type"`
	ChunkIndex     int     `json:"chunk_index"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
}

// Answer is the structured synthesis result returned to callers.
type Answer struct {
	Main            string              `json:"main"`
	NextSteps       []string            `json:"next_steps,omitempty"`
	SelectedAgentID int64               `json:"selected_agent_id"`
	Sources         []RetrievedFragment `json:"sources,omitempty"`
}

// DocTypes collects the normalized doc types of a retrieval result set, in
// retrieval order, for rule evaluation.
func DocTypes(fragments []RetrievedFragment) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.DocType != "" {
			out = append(out, f.DocType)
		}
	}
	return out
}
