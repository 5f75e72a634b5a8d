// Package tagcodec converts between an item's ordered tag list and the flat
// string the catalog stores per record.
//
// The stored form is a JSON array of strings, e.g. ["Casual","Summer"].
// Encoding is deterministic and lossless: order and duplicates survive a round trip.
package tagcodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptTagData is returned when a stored value is not a JSON array of strings.
var ErrCorruptTagData = errors.New("corrupt tag data")

// Empty is the encoded form of an empty tag list.
const Empty = "[]"

// Encode serializes tags. A nil slice encodes the same as an empty one.
func Encode(tags []string) (string, error) {
	if len(tags) == 0 {
		return Empty, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep <, > and & readable in the stored column.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses a stored value. An empty string decodes to an empty, non-nil slice.
// Any other value that is not a JSON array of strings fails with ErrCorruptTagData.
func Decode(raw string) ([]string, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return []string{}, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrCorruptTagData)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTagData, err)
	}

	tags := make([]string, 0, len(elems))
	for i, elem := range elems {
		// json.Unmarshal would turn null into "" silently; reject it instead.
		if len(elem) == 0 || elem[0] != '"' {
			return nil, fmt.Errorf("%w: element %d is not a string", ErrCorruptTagData, i)
		}
		var tag string
		if err := json.Unmarshal(elem, &tag); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptTagData, i, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
