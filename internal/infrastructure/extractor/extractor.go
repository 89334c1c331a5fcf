// Package extractor converts uploaded files into plain text or structured
// records ahead of chunking. Tabular and object formats (csv, json, jsonl,
// xlsx) produce one record per row so downstream chunking can keep rows
// intact; txt, md and pdf produce a single text stream.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename, fileType string, raw []byte) (*ports.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract text",
			errors.New("empty file"))
	}

	format := normalizeFormat(filename, fileType)
	var (
		extraction *ports.Extraction
		err        error
	)
	switch format {
	case "txt", "md":
		extraction, err = extractPlaintext(raw)
	case "pdf":
		extraction, err = extractPDF(raw)
	case "csv":
		extraction, err = extractCSV(raw)
	case "json":
		extraction, err = extractJSON(raw)
	case "jsonl":
		extraction, err = extractJSONL(raw)
	case "xlsx":
		extraction, err = extractXLSX(raw)
	default:
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract text",
			fmt.Errorf("unsupported file format %q", format))
	}
	if err != nil {
		return nil, err
	}

	if extraction.DocType == "" {
		extraction.DocType = inferDocTypeFromFilename(filename)
	}
	return extraction, nil
}

func normalizeFormat(filename, fileType string) string {
	format := strings.ToLower(strings.TrimPrefix(fileType, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}
	if format == "markdown" {
		format = "md"
	}
	return format
}
