package extractor

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

// docTypeFields are record keys that carry the document category. The first
// populated one wins; every record is expected to agree within one file.
var docTypeFields = []string{"doc_type", "category", "type"}

func extractCSV(raw []byte) (*ports.Extraction, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract csv", err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract csv",
			errors.New("csv needs a header row and at least one data row"))
	}

	return recordsFromTable(rows[0], rows[1:])
}

func extractJSON(raw []byte) (*ports.Extraction, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract json", err)
	}

	var objects []map[string]any
	switch v := parsed.(type) {
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, domain.WrapError(domain.ErrInvalidParameter, "extract json",
					fmt.Errorf("array element %d is not an object", i))
			}
			objects = append(objects, obj)
		}
	case map[string]any:
		objects = append(objects, v)
	default:
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract json",
			errors.New("json root must be an object or an array of objects"))
	}
	if len(objects) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract json",
			errors.New("json contains no records"))
	}

	return recordsFromObjects(objects)
}

func extractJSONL(raw []byte) (*ports.Extraction, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var objects []map[string]any
	line := 0
	for scanner.Scan() {
		line++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidParameter, "extract jsonl",
				fmt.Errorf("line %d: %w", line, err))
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract jsonl", err)
	}
	if len(objects) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract jsonl",
			errors.New("jsonl contains no records"))
	}

	return recordsFromObjects(objects)
}

func recordsFromTable(header []string, rows [][]string) (*ports.Extraction, error) {
	docTypeCol := -1
	for i, name := range header {
		if isDocTypeField(name) {
			docTypeCol = i
			break
		}
	}

	extraction := &ports.Extraction{Records: make([]string, 0, len(rows))}
	for _, row := range rows {
		var builder strings.Builder
		for i, name := range header {
			if i >= len(row) {
				break
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('\n')
			}
			fmt.Fprintf(&builder, "%s: %s", strings.TrimSpace(name), value)
		}
		if builder.Len() == 0 {
			continue
		}
		extraction.Records = append(extraction.Records, builder.String())
		if docTypeCol >= 0 && docTypeCol < len(row) && extraction.DocType == "" {
			extraction.DocType = strings.ToLower(strings.TrimSpace(row[docTypeCol]))
		}
	}
	if len(extraction.Records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract records",
			errors.New("no non-empty data rows"))
	}
	return extraction, nil
}

func recordsFromObjects(objects []map[string]any) (*ports.Extraction, error) {
	extraction := &ports.Extraction{Records: make([]string, 0, len(objects))}
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var builder strings.Builder
		for _, key := range keys {
			value := strings.TrimSpace(renderValue(obj[key]))
			if value == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('\n')
			}
			fmt.Fprintf(&builder, "%s: %s", key, value)
			if extraction.DocType == "" && isDocTypeField(key) {
				extraction.DocType = strings.ToLower(value)
			}
		}
		if builder.Len() == 0 {
			continue
		}
		extraction.Records = append(extraction.Records, builder.String())
	}
	if len(extraction.Records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract records",
			errors.New("no non-empty records"))
	}
	return extraction, nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func isDocTypeField(name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, field := range docTypeFields {
		if lowered == field {
			return true
		}
	}
	return false
}

func inferDocTypeFromFilename(filename string) string {
	lowered := strings.ToLower(filename)
	if strings.Contains(lowered, "course") || strings.Contains(lowered, "lesson") {
		return "course"
	}
	return "documentation"
}
