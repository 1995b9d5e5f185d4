package loto

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	imageExt   = regexp.MustCompile(`\.(jpg|jpeg|png)$`)
	anyExt     = regexp.MustCompile(`\.([a-z0-9]+)$`)
)

var allowedImageMIMEs = map[string]bool{
	"image/jpg":  true,
	"image/jpeg": true,
	"image/png":  true,
}

// Result is the outcome of a single field validation. Validation never
// fails with an error; it always yields a verdict plus an optional
// message for inline display.
type Result struct {
	Valid   bool
	Message string
}

// ValidateNumeric checks a numeric form field. Empty input is valid
// (not yet filled, not yet wrong); non-empty input must be digits only.
// Signs, decimal points and thousands separators are rejected at input
// time; separators are applied only at serialization.
func ValidateNumeric(value string) Result {
	if value == "" || digitsOnly.MatchString(value) {
		return Result{Valid: true}
	}
	return Result{Valid: false, Message: "must only be a number"}
}

// ImageMeta describes a locally selected image file. Only the name and
// declared media type matter to validation; bytes travel separately.
type ImageMeta struct {
	Name     string
	MIMEType string
}

// ValidateImage checks an image picker field. A nil file is valid (the
// field is optional until a file is chosen). Both the declared MIME type
// and the filename extension must independently be jpg, jpeg or png; a
// spoofed extension with a correct MIME type (or vice versa) is rejected.
func ValidateImage(file *ImageMeta) Result {
	if file == nil {
		return Result{Valid: true}
	}
	name := strings.ToLower(file.Name)
	if allowedImageMIMEs[file.MIMEType] && imageExt.MatchString(name) {
		return Result{Valid: true}
	}
	label := "File"
	if m := anyExt.FindStringSubmatch(name); m != nil {
		label = m[1]
	}
	return Result{Valid: false, Message: fmt.Sprintf("%s not supported. Only jpg, jpeg, png", label)}
}

// ValidityMap tracks the per-field validity of every currently trackable
// field, keyed by field identifier (static id, or name_index for
// per-source fields). Entries are added when a field becomes trackable
// and removed when the owning record or dynamic sub-field is destroyed.
type ValidityMap struct {
	fields map[string]bool
}

// NewValidityMap returns an empty map; with no tracked fields the
// aggregate predicate is true.
func NewValidityMap() *ValidityMap {
	return &ValidityMap{fields: make(map[string]bool)}
}

// Register starts tracking a field in the initial valid state.
func (m *ValidityMap) Register(id string) { m.fields[id] = true }

// Set records a validation outcome for a tracked field.
func (m *ValidityMap) Set(id string, valid bool) { m.fields[id] = valid }

// Remove stops tracking a field.
func (m *ValidityMap) Remove(id string) { delete(m.fields, id) }

// Valid reports the current state of one field. Untracked fields report
// valid.
func (m *ValidityMap) Valid(id string) bool {
	v, ok := m.fields[id]
	return !ok || v
}

// AllValid is the aggregate submittability predicate: the logical AND
// over all tracked fields.
func (m *ValidityMap) AllValid() bool {
	for _, v := range m.fields {
		if !v {
			return false
		}
	}
	return true
}

// Len returns the number of tracked fields.
func (m *ValidityMap) Len() int { return len(m.fields) }
