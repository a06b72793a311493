package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

// wrapperKeys are the envelope fields a .json upload may keep its records
// under, checked in order.
var wrapperKeys = []string{"hits", "answers", "chunks", "records"}

// ExtractRecords parses an uploaded file into raw records. A .json file holds
// an array, a known envelope, or a single object; a .jsonl file holds one
// object per line.
func ExtractRecords(fileName string, data []byte) ([]map[string]any, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jsonl":
		return extractLines(data)
	default:
		return extractDocument(data)
	}
}

func extractDocument(data []byte) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apierror.Validation("file", "invalid JSON: %v", err)
	}

	switch v := doc.(type) {
	case []any:
		return objects(v)
	case map[string]any:
		for _, key := range wrapperKeys {
			if list, ok := v[key].([]any); ok {
				return objects(list)
			}
		}
		return []map[string]any{v}, nil
	default:
		return nil, apierror.Validation("file", "expected an object or array of objects")
	}
}

func extractLines(data []byte) ([]map[string]any, error) {
	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, apierror.Validation("file", "line %d: invalid JSON: %v", line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return out, nil
}

func objects(list []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, apierror.Validation("file", "item %d is not an object", i)
		}
		out = append(out, rec)
	}
	return out, nil
}
