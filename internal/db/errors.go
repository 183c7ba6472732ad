package db

import "errors"

// Sentinel errors shared by every store backend (Valkey/Redis and Badger).
var (
	// ErrKeyNotFound is a cache miss.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound is returned by FT.INFO and FT.DROPINDEX for a missing index.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by FT.CREATE when the vector index is already there.
	ErrIndexExists = errors.New("db: index already exists")
)

// Index operations.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
)

// Data operations: description hashes and cached embeddings.
const (
	OpHSet = "HSET"
	OpGet  = "GET"
	OpSet  = "SET"
)

// Error records which server command failed. errors.Is and errors.As see through it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
