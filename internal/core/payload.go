package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPayload is returned when an import document cannot be decoded.
var ErrInvalidPayload = errors.New("invalid import payload")

// Payload is a decoded import document:
//
//	{"restaurants": [{"name": ..., "menus": [{"name": ..., "description": ...,
//	  "menu_items": [{"name": ..., "description": ..., "price": ..., "picture_url": ...}],
//	  "dishes": [...]}]}]}
type Payload struct {
	Restaurants []Record `json:"restaurants" yaml:"restaurants"`
}

// Format is the encoding of an import document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromFilename picks the format by extension, defaulting to JSON.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// FormatFromContentType picks the format from a Content-Type header,
// defaulting to JSON.
func FormatFromContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	}
	return FormatJSON
}

// utf8BOM is prepended by some Windows editors; neither decoder accepts it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// DecodePayload reads one import document from r.
func DecodePayload(r io.Reader, format Format) (Payload, error) {
	var p Payload
	r = skipBOM(r)

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return Payload{}, fmt.Errorf("%w: yaml: %w", ErrInvalidPayload, err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&p); err != nil {
			return Payload{}, fmt.Errorf("%w: json: %w", ErrInvalidPayload, err)
		}
		if dec.More() {
			return Payload{}, fmt.Errorf("%w: json: trailing data after document", ErrInvalidPayload)
		}
	default:
		return Payload{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidPayload, format)
	}

	return p, nil
}

// permitted lists, per nesting level, the scalar keys and the nested list
// keys an import document may carry.
type permitted struct {
	scalars []string
	nested  map[string]*permitted
}

var itemPermit = &permitted{
	scalars: []string{"name", "description", "price", "picture_url"},
}

var menuPermit = &permitted{
	scalars: []string{"name", "description"},
	nested: map[string]*permitted{
		fieldMenuItems: itemPermit,
		fieldDishes:    itemPermit,
	},
}

var restaurantPermit = &permitted{
	scalars: []string{"name"},
	nested: map[string]*permitted{
		fieldMenus: menuPermit,
	},
}

// PermitPayload returns a copy of p holding only the documented keys.
// Non-scalar values under scalar keys and non-object list elements are
// dropped.
func PermitPayload(p Payload) Payload {
	out := Payload{}
	if p.Restaurants == nil {
		return out
	}
	out.Restaurants = make([]Record, 0, len(p.Restaurants))
	for _, r := range p.Restaurants {
		out.Restaurants = append(out.Restaurants, permitRecord(r, restaurantPermit))
	}
	return out
}

func permitRecord(rec Record, rules *permitted) Record {
	out := make(Record, len(rules.scalars)+len(rules.nested))
	for _, key := range rules.scalars {
		v, ok := rec[key]
		if ok && isScalar(v) {
			out[key] = v
		}
	}
	for key, child := range rules.nested {
		v, ok := rec[key]
		if !ok {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			if recs, isRecs := v.([]Record); isRecs {
				list = make([]any, len(recs))
				for i := range recs {
					list[i] = recs[i]
				}
			} else {
				continue
			}
		}
		kept := make([]any, 0, len(list))
		for _, elem := range list {
			switch m := elem.(type) {
			case map[string]any:
				kept = append(kept, permitRecord(Record(m), child))
			case Record:
				kept = append(kept, permitRecord(m, child))
			}
		}
		out[key] = kept
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint64, json.Number:
		return true
	}
	return false
}
