package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// CSV column names of books_with_emotions.csv.
const (
	colISBN13      = "isbn13"
	colTitle       = "title"
	colAuthors     = "authors"
	colDescription = "description"
	colThumbnail   = "thumbnail"
	colCategory    = "simple_categories"
	colJoy         = "joy"
	colSurprise    = "surprise"
	colAnger       = "anger"
	colFear        = "fear"
	colSadness     = "sadness"
)

var requiredColumns = []string{
	colISBN13, colTitle, colAuthors, colDescription, colThumbnail, colCategory,
	colJoy, colSurprise, colAnger, colFear, colSadness,
}

// CSVSource reads the catalog from a CSV file with a header row.
// Columns are located by name, extra columns are ignored.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSV-backed catalog source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load reads and parses every row.
func (c *CSVSource) Load(_ context.Context) ([]book.Record, error) {
	f, err := os.Open(filepath.Clean(c.Path))
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Path, err)
	}
	return records, nil
}

// ReadCSV parses catalog rows from r.
func ReadCSV(r io.Reader) ([]book.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var records []book.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, idx map[string]int) (book.Record, error) {
	get := func(col string) string {
		return strings.TrimSpace(row[idx[col]])
	}

	id, err := parseISBN(get(colISBN13))
	if err != nil {
		return book.Record{}, err
	}

	var e book.Emotions
	scores := []struct {
		col string
		dst *float64
	}{
		{colJoy, &e.Joy},
		{colSurprise, &e.Surprise},
		{colAnger, &e.Anger},
		{colFear, &e.Fear},
		{colSadness, &e.Sadness},
	}
	for _, s := range scores {
		v, err := parseScore(s.col, get(s.col))
		if err != nil {
			return book.Record{}, err
		}
		*s.dst = v
	}

	return book.Record{
		ID:          id,
		Title:       get(colTitle),
		Authors:     get(colAuthors),
		Description: get(colDescription),
		Thumbnail:   get(colThumbnail),
		Category:    get(colCategory),
		Emotions:    e,
	}, nil
}

// parseISBN accepts plain integers and the float rendering pandas sometimes writes ("9780002005883.0").
func parseISBN(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty isbn13")
	}
	s = strings.TrimSuffix(s, ".0")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid isbn13 %q", s)
	}
	return id, nil
}

func parseScore(col, s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing %s score", col)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s score %q", col, s)
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%s score %v out of range [0,1]", col, v)
	}
	return v, nil
}
