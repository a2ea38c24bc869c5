package pipeline

import (
	"context"
)

// Extractor fetches every record currently offered by an upstream feed.
// The returned slice is fully validated; any invalid record fails the fetch.
type Extractor[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

// Repository upserts records keyed on their natural key and returns the
// number of records submitted.
type Repository[T any] interface {
	UpsertMany(ctx context.Context, records []T) (int, error)
}

// Publisher forwards records that have been committed to storage.
type Publisher[T any] interface {
	Publish(ctx context.Context, records []T) error
}
