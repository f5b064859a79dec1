// Package sidecar reads and writes the image metadata file that sits next to
// an exported working set. Records are kept as raw JSON; only the path-bearing
// fields are interpreted.
package sidecar

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/google/renameio"
)

// ErrSidecarLoad is returned when the sidecar is missing or malformed.
var ErrSidecarLoad = errors.New("cannot load sidecar")

// Path-bearing record fields.
const (
	FieldPath      = "path"
	FieldThumbnail = "thumbnail"
	FieldFilename  = "filename"
)

// Shape is the on-disk layout of a sidecar.
type Shape int

const (
	// ShapeList is a bare JSON array of records.
	ShapeList Shape = iota
	// ShapeObject is an object carrying an "images" array plus other metadata.
	ShapeObject
)

func (s Shape) String() string {
	if s == ShapeObject {
		return "object"
	}
	return "list"
}

// Record is one opaque sidecar entry.
type Record struct {
	raw    json.RawMessage
	fields map[string]string
}

// Field returns a path-bearing field, or "" when absent or not a string.
func (r Record) Field(name string) string {
	return r.fields[name]
}

// Raw returns the record exactly as it was read.
func (r Record) Raw() json.RawMessage {
	return r.raw
}

// Keys returns the normalized paths of every path-bearing field.
func (r Record) Keys(baseDir string) []string {
	var keys []string
	for _, name := range []string{FieldPath, FieldThumbnail, FieldFilename} {
		if v := r.fields[name]; v != "" {
			keys = append(keys, PathKey(resolve(baseDir, v)))
		}
	}
	return keys
}

// Primary returns the record's own image resolved against baseDir: its path,
// or its filename when no path is set. It is "" for records with neither.
func (r Record) Primary(baseDir string) string {
	for _, name := range []string{FieldPath, FieldFilename} {
		if v := r.fields[name]; v != "" {
			return resolve(baseDir, v)
		}
	}
	return ""
}

// Files returns the on-disk files owned by the record: its primary image and
// thumbnail, resolved against baseDir and without duplicates.
func (r Record) Files(baseDir string) []string {
	var files []string
	seen := map[string]bool{}
	for _, p := range []string{r.Primary(baseDir), r.thumbnail(baseDir)} {
		if p == "" {
			continue
		}
		if k := PathKey(p); !seen[k] {
			seen[k] = true
			files = append(files, p)
		}
	}
	return files
}

func (r Record) thumbnail(baseDir string) string {
	if v := r.fields[FieldThumbnail]; v != "" {
		return resolve(baseDir, v)
	}
	return ""
}

// Matches reports whether any path-bearing field resolves to a key in targets.
func (r Record) Matches(baseDir string, targets map[string]bool) bool {
	for _, k := range r.Keys(baseDir) {
		if targets[k] {
			return true
		}
	}
	return false
}

// Owns reports whether the record's primary image is one of targets. Only
// such records are removal candidates; a record matched through its thumbnail
// alone describes an image that stays.
func (r Record) Owns(baseDir string, targets map[string]bool) bool {
	p := r.Primary(baseDir)
	return p != "" && targets[PathKey(p)]
}

func newRecord(raw json.RawMessage) Record {
	rec := Record{raw: raw, fields: map[string]string{}}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// not an object, nothing to match on
		return rec
	}
	for _, name := range []string{FieldPath, FieldThumbnail, FieldFilename} {
		var s string
		if v, ok := obj[name]; ok && json.Unmarshal(v, &s) == nil {
			rec.fields[name] = s
		}
	}
	return rec
}

// Store is a loaded sidecar file.
type Store struct {
	path    string
	perm    os.FileMode
	shape   Shape
	top     map[string]json.RawMessage
	records []Record
}

// Load reads the sidecar at path. Both the bare list and the object-with-images
// shapes are accepted; anything else fails with ErrSidecarLoad.
func Load(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSidecarLoad, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSidecarLoad, err)
	}

	s := &Store{path: path, perm: info.Mode().Perm()}
	var items []json.RawMessage

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		s.shape = ShapeList
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSidecarLoad, path, err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		s.shape = ShapeObject
		if err := json.Unmarshal(trimmed, &s.top); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSidecarLoad, path, err)
		}
		if raw, ok := s.top["images"]; ok && string(bytes.TrimSpace(raw)) != "null" {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%w: %s: images is not a list: %v", ErrSidecarLoad, path, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s does not contain a valid image list", ErrSidecarLoad, path)
	}

	s.records = make([]Record, 0, len(items))
	for _, item := range items {
		s.records = append(s.records, newRecord(item))
	}
	return s, nil
}

// Path returns the file the store was loaded from.
func (s *Store) Path() string {
	return s.path
}

// Shape returns the layout the sidecar was loaded with; Save writes it back the same way.
func (s *Store) Shape() Shape {
	return s.shape
}

// Records returns the current records.
func (s *Store) Records() []Record {
	return s.records
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// SetRecords replaces the record list. Nothing is written until Save.
func (s *Store) SetRecords(records []Record) {
	s.records = records
}

// Marshal encodes the store in its original shape, other top-level fields untouched.
func (s *Store) Marshal() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(s.records))
	for _, r := range s.records {
		items = append(items, r.raw)
	}

	if s.shape == ShapeList {
		return json.MarshalIndent(items, "", "  ")
	}

	imagesJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}
	out := make(map[string]json.RawMessage, len(s.top)+1)
	for k, v := range s.top {
		out[k] = v
	}
	out["images"] = imagesJSON
	return json.MarshalIndent(out, "", "  ")
}

// Save writes the sidecar atomically (temporary file plus rename), so a crash
// never leaves a truncated file behind.
func (s *Store) Save() error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	perm := s.perm
	if perm == 0 {
		perm = 0o644
	}
	if err := renameio.WriteFile(s.path, data, perm); err != nil {
		return fmt.Errorf("writing sidecar %s: %w", s.path, err)
	}
	return nil
}
