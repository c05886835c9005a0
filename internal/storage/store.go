package storage

import (
	"context"
	"errors"
	"fmt"

	"slds/internal/ids"
)

var (
	// ErrNotFound means no complete raw record is cached for a key
	ErrNotFound = errors.New("raw record not found")
	// ErrAmbiguousLocalIndex means a key resolves to more than one
	// candidate. This is corruption, never resolved silently.
	ErrAmbiguousLocalIndex = errors.New("ambiguous local raw record index")
	// ErrTypeMismatch means a payload handed to the store is not a document
	ErrTypeMismatch = errors.New("payload is not a JSON document")
)

// Document is an untyped JSON object as returned by the provider
type Document = map[string]any

// Names are the stems (no extension) of the two files of a raw record
type Names struct {
	Match    string
	Timeline string
}

// Record is one cached match: match payload plus timeline payload
type Record struct {
	ID       ids.GameID
	Names    Names
	Match    Document
	Timeline Document
}

// RecordStore persists raw match records. Implementations must never leave
// half a pair visible to Index.
type RecordStore interface {
	Index(ctx context.Context) (*Index, error)
	Resolve(ctx context.Context, key ids.Key) (Names, error)
	Put(ctx context.Context, id ids.GameID, match, timeline any) (Names, error)
	LoadRecord(ctx context.Context, key ids.Key) (*Record, error)
}

// AsDocument accepts the payload shapes the provider client hands back
func AsDocument(v any) (Document, error) {
	switch doc := v.(type) {
	case map[string]any:
		if doc == nil {
			return nil, fmt.Errorf("%w: nil map", ErrTypeMismatch)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrTypeMismatch, v)
	}
}
