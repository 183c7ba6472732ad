// Package book holds the catalog record type shared by the catalog store,
// the vector index payloads and the retrieval pipeline.
package book

import (
	"strconv"
	"strings"
)

// Emotions are the five precomputed emotion scores of a book description, each in [0,1].
type Emotions struct {
	Joy      float64
	Surprise float64
	Anger    float64
	Fear     float64
	Sadness  float64
}

// Record is one immutable catalog entry. ID is the ISBN-13 shared with the vector index payload.
type Record struct {
	ID          int64
	Title       string
	Authors     string // semicolon-delimited, order-preserving
	Description string
	Thumbnail   string // may be empty
	Category    string // may be empty
	Emotions    Emotions
}

// ParsePayloadID extracts the catalog identifier from an index payload.
// The identifier is the first whitespace-delimited token once surrounding
// double quotes are stripped. ok is false for anything that does not parse.
func ParsePayloadID(payload string) (id int64, ok bool) {
	s := strings.Trim(strings.TrimSpace(payload), `"`)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// TaggedLine renders the record as an index payload: "<id> <description>".
func TaggedLine(r Record) string {
	desc := strings.Join(strings.Fields(r.Description), " ")
	if desc == "" {
		return strconv.FormatInt(r.ID, 10)
	}
	return strconv.FormatInt(r.ID, 10) + " " + desc
}
