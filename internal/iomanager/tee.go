package iomanager

import (
	"context"
	"fmt"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

// Tee reads from a primary store and writes to the primary and every mirror.
type Tee struct {
	primary Store
	mirrors []Writer
}

// NewTee creates a Tee.
func NewTee(primary Store, mirrors ...Writer) *Tee {
	return &Tee{primary: primary, mirrors: mirrors}
}

func (t *Tee) GetDataset(ctx context.Context, key, partition string) (*dataset.Dataset, error) {
	return t.primary.GetDataset(ctx, key, partition)
}

func (t *Tee) Metadata(ctx context.Context, key, partition string) (dataset.Metadata, error) {
	return t.primary.Metadata(ctx, key, partition)
}

// PutDataset writes to the primary first; mirrors are only written once it succeeds.
func (t *Tee) PutDataset(ctx context.Context, key, partition string, ds *dataset.Dataset, meta dataset.Metadata) error {
	if err := t.primary.PutDataset(ctx, key, partition, ds, meta); err != nil {
		return err
	}
	for i, m := range t.mirrors {
		if err := m.PutDataset(ctx, key, partition, ds, meta); err != nil {
			return fmt.Errorf("mirror %d: %w", i, err)
		}
	}
	return nil
}
