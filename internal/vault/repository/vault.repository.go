package repository

import "context"

// Repository persists the single vault document as raw JSON bytes.
// Load returns model.ErrNotFound when nothing has been stored yet.
type Repository interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
