package extractor

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

func extractPlaintext(raw []byte) (*ports.Extraction, error) {
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract plaintext",
			errors.New("file is not valid utf-8"))
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract plaintext",
			errors.New("file contains no text"))
	}
	return &ports.Extraction{Text: text}, nil
}

func extractPDF(raw []byte) (*ports.Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract pdf", err)
	}
	content, err := io.ReadAll(plain)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract pdf", err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract pdf",
			errors.New("pdf contains no extractable text"))
	}
	return &ports.Extraction{Text: text}, nil
}
