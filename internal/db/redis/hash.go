package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/bookrec/internal/db"
)

// HSetMulti writes every item as one HSET in a single pipelined round-trip.
// Fields are written in sorted order. A failure reports how many hashes were
// rejected and the first rejected key; accepted hashes stay written.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i := range items {
		cmds[i] = s.hset(items[i])
	}

	var (
		failed   int
		firstKey string
		firstErr error
	)
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			if failed == 0 {
				firstKey, firstErr = items[i].Key, err
			}
			failed++
		}
	}
	if failed > 0 {
		return &db.Error{
			Op:  db.OpHSet,
			Err: fmt.Errorf("%d of %d hashes rejected, first %s: %w", failed, len(items), firstKey, firstErr),
		}
	}
	return nil
}

func (s *Store) hset(item db.HashSetItem) rueidis.Completed {
	names := make([]string, 0, len(item.Fields))
	for name := range item.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd := s.b().Hset().Key(item.Key).FieldValue()
	for _, name := range names {
		cmd = cmd.FieldValue(name, item.Fields[name])
	}
	return cmd.Build()
}
