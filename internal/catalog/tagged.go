package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

const maxTaggedLine = 1 << 20

// ReadTagged returns one index payload per non-blank line of a tagged
// descriptions file ("<isbn13> <description>" per line).
func ReadTagged(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTaggedLine)

	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan tagged descriptions: %w", err)
	}
	return lines, nil
}

// TaggedFile serves index payloads from a tagged descriptions file.
type TaggedFile struct {
	Path string
}

// Payloads reads the file.
func (t TaggedFile) Payloads(_ context.Context) ([]string, error) {
	f, err := os.Open(filepath.Clean(t.Path))
	if err != nil {
		return nil, fmt.Errorf("open tagged descriptions: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadTagged(f)
}

// TaggedRecords derives index payloads from the loaded catalog when no tagged file is configured.
type TaggedRecords struct {
	Store *Store
}

// Payloads loads the catalog and renders one payload per record.
func (t TaggedRecords) Payloads(ctx context.Context) ([]string, error) {
	if err := t.Store.Load(ctx); err != nil {
		return nil, err
	}
	records := t.Store.Records()
	out := make([]string, len(records))
	for i := range records {
		out[i] = book.TaggedLine(records[i])
	}
	return out, nil
}
