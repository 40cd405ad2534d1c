// Package caseref encodes the reference to a business case that appointment
// rows carry in their notes. The relational store does not enforce it, so
// every read goes through Parse and callers must handle references that no
// longer resolve.
package caseref

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	keyCaseID       = "case_id"
	legacyKeyCaseID = "caseId"
	keyNote         = "note"
)

var (
	// ErrNoReference indicates the notes carry no case reference at all.
	ErrNoReference = errors.New("caseref: no case reference")
	// ErrMalformed indicates the notes look structured but cannot be decoded.
	ErrMalformed = errors.New("caseref: malformed case reference")
)

// Reference links a calendar row to a case in the document store.
type Reference struct {
	CaseID string
	// Note is free text kept next to the key for staff.
	Note string
	// Attributes holds any other key/value pairs found in the blob.
	Attributes map[string]string
}

// New returns a reference to caseID.
func New(caseID string) Reference {
	return Reference{CaseID: caseID}
}

// WithNote returns a copy carrying note.
func (r Reference) WithNote(note string) Reference {
	r.Note = strings.TrimSpace(note)
	return r
}

// Encode serializes the reference for storage in a notes column. Keys are
// emitted in sorted order so equal references encode identically.
func (r Reference) Encode() (string, error) {
	if strings.TrimSpace(r.CaseID) == "" {
		return "", ErrNoReference
	}
	blob := make(map[string]string, len(r.Attributes)+2)
	for k, v := range r.Attributes {
		blob[k] = v
	}
	blob[keyCaseID] = r.CaseID
	if r.Note != "" {
		blob[keyNote] = r.Note
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("caseref: encode: %w", err)
	}
	return string(raw), nil
}

// Looks reports whether notes appear to hold a structured blob, whether or
// not it decodes.
func Looks(notes string) bool {
	return strings.HasPrefix(strings.TrimSpace(notes), "{")
}

// Parse extracts a reference from notes. Plain text notes and blobs without
// a case id return ErrNoReference; blobs that fail to decode return
// ErrMalformed.
func Parse(notes string) (Reference, error) {
	if !Looks(notes) {
		return Reference{}, ErrNoReference
	}

	var blob map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(notes))))
	decoder.UseNumber()
	if err := decoder.Decode(&blob); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ref := Reference{}
	for key, raw := range blob {
		value, err := scalar(raw)
		if err != nil {
			return Reference{}, fmt.Errorf("%w: key %q: %v", ErrMalformed, key, err)
		}
		switch key {
		case keyCaseID, legacyKeyCaseID:
			if ref.CaseID == "" {
				ref.CaseID = strings.TrimSpace(value)
			}
		case keyNote:
			ref.Note = value
		default:
			if ref.Attributes == nil {
				ref.Attributes = make(map[string]string)
			}
			ref.Attributes[key] = value
		}
	}

	if ref.CaseID == "" {
		return Reference{}, ErrNoReference
	}
	return ref, nil
}

func scalar(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		b, err := strconv.ParseBool(string(trimmed))
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", errors.New("nested values are not supported")
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
