package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/bookrec/internal/db"
)

// CreateIndex creates an FT index over HASH keys.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") || isRedisErr(err, "already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name, optionally deleting the indexed hashes.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether FT.INFO knows the index.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if _, err := s.indexInfo(ctx, name); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IndexDocCount returns num_docs from FT.INFO.
func (s *Store) IndexDocCount(ctx context.Context, name string) (int, error) {
	info, err := s.indexInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	for i := 0; i+1 < len(info); i += 2 {
		key, err := info[i].ToString()
		if err != nil || key != "num_docs" {
			continue
		}
		return parseCount(info[i+1])
	}
	return 0, nil
}

func (s *Store) indexInfo(ctx context.Context, name string) ([]rueidis.RedisMessage, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	info, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return info, nil
}

// Redis says "Unknown index name", valkey-search says "Index with name ... not found".
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "not found")
}

func parseCount(m rueidis.RedisMessage) (int, error) {
	if n, err := m.AsInt64(); err == nil {
		return int(n), nil
	}
	str, err := m.ToString()
	if err != nil {
		return 0, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return int(f), nil
}

// buildCreateArgs renders
// NAME ON HASH PREFIX 1 prefix SCHEMA field VECTOR HNSW n TYPE FLOAT32 DIM d DISTANCE_METRIC COSINE [M m] [EF_CONSTRUCTION ef].
func buildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	attrs := []string{"TYPE", "FLOAT32", "DIM", strconv.Itoa(def.Dim), "DISTANCE_METRIC", "COSINE"}
	if def.HNSW.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(def.HNSW.M))
	}
	if def.HNSW.EFConstruction > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(def.HNSW.EFConstruction))
	}

	args := []string{
		def.Name, "ON", "HASH",
		"PREFIX", "1", def.Prefix,
		"SCHEMA", def.VectorField, "VECTOR", "HNSW", strconv.Itoa(len(attrs)),
	}
	return append(args, attrs...), nil
}
