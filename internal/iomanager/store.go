// Package iomanager persists datasets between asset materializations.
package iomanager

import (
	"context"
	"errors"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

// ErrDatasetNotFound is returned when no stored dataset matches a key.
var ErrDatasetNotFound = errors.New("dataset not found")

// Reader loads stored datasets. An empty partition on a partitioned asset
// returns the union of every stored partition in key order.
type Reader interface {
	GetDataset(ctx context.Context, key, partition string) (*dataset.Dataset, error)
	Metadata(ctx context.Context, key, partition string) (dataset.Metadata, error)
}

// Writer persists a dataset together with its metadata.
type Writer interface {
	PutDataset(ctx context.Context, key, partition string, ds *dataset.Dataset, meta dataset.Metadata) error
}

// Store is a Reader and Writer.
type Store interface {
	Reader
	Writer
}
