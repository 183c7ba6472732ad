package db

import (
	"errors"
	"fmt"
)

// HNSW holds graph build parameters. Zero values keep server defaults.
type HNSW struct {
	M              int // max edges per node
	EFConstruction int // build-time candidate list size
}

// IndexDefinition describes an FT index over the HASH keys under Prefix.
// The only indexed field is a FLOAT32 vector searched by cosine distance;
// other hash fields are stored but not indexed.
type IndexDefinition struct {
	Name        string
	Prefix      string
	VectorField string
	Dim         int
	HNSW        HNSW
}

// NewVectorIndex returns a validated definition.
func NewVectorIndex(name, prefix, vectorField string, dim int, hnsw HNSW) (*IndexDefinition, error) {
	def := &IndexDefinition{
		Name:        name,
		Prefix:      prefix,
		VectorField: vectorField,
		Dim:         dim,
		HNSW:        hnsw,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Validate checks that the definition can be sent as FT.CREATE.
// An empty prefix is rejected so an index never covers the whole keyspace.
func (d *IndexDefinition) Validate() error {
	switch {
	case !validIndexName(d.Name):
		return fmt.Errorf("index name %q must match [a-zA-Z0-9_:-]+", d.Name)
	case d.Prefix == "":
		return errors.New("key prefix is required")
	case d.VectorField == "":
		return errors.New("vector field name is required")
	case d.Dim <= 0:
		return fmt.Errorf("vector dimensions must be positive, got %d", d.Dim)
	case d.HNSW.M < 0 || d.HNSW.EFConstruction < 0:
		return fmt.Errorf("hnsw parameters must not be negative, got m=%d ef_construction=%d", d.HNSW.M, d.HNSW.EFConstruction)
	}
	return nil
}

func validIndexName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
