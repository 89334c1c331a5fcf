package chunking

import (
	"errors"
	"fmt"

	"github.com/ragline/ragline/internal/core/domain"
)

// Splitter produces overlapping fixed-size windows over extracted text, or
// groups whole records for structured sources. Both modes are pure and
// deterministic: identical input and parameters yield identical boundaries.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new splitter",
			fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new splitter",
			fmt.Errorf("overlap must satisfy 0 <= overlap < size, got %d", overlap))
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk walks the text in windows of chunkSize runes, advancing the window
// start by chunkSize-overlap each step. The final chunk may be shorter and is
// included whenever it carries any remaining text.
func (s *Splitter) Chunk(text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := s.chunkSize - s.overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out, nil
}

// ChunkRecords accumulates whole records until adding the next one would
// exceed chunkSize. A record is never split; one longer than chunkSize becomes
// a chunk of its own.
func (s *Splitter) ChunkRecords(records []string) ([]string, error) {
	if records == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "chunk records",
			errors.New("records must not be nil"))
	}

	out := make([]string, 0, len(records))
	current := ""
	for _, record := range records {
		if record == "" {
			continue
		}
		if current == "" {
			current = record
			continue
		}
		if len([]rune(current))+len([]rune(record))+1 > s.chunkSize {
			out = append(out, current)
			current = record
			continue
		}
		current += "\n" + record
	}
	if current != "" {
		out = append(out, current)
	}
	return out, nil
}
