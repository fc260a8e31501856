// Package archive stores run reports in cold storage.
package archive

import "context"

// Storage is a flat blob store addressed by slash-separated paths.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error

	// Read returns ErrNotFound when nothing is stored at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns every stored path under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)
}
