package nested

import (
	"context"

	"github.com/hupe1980/nested/blobstore"
	"github.com/hupe1980/nested/container"
	"github.com/hupe1980/nested/resource"
	"github.com/hupe1980/nested/snapshot"
	"github.com/hupe1980/nested/typedesc"
	"github.com/hupe1980/nested/validity"
)

// ErrOutOfMemory is returned when a memory budget cannot hold a container.
var ErrOutOfMemory = validity.ErrOutOfMemory

type options struct {
	controller  *resource.Controller
	compression string
}

// Option configures container construction and snapshot IO.
type Option func(*options)

// WithController charges containers and snapshot IO against a shared
// resource controller.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMemoryLimit caps total container memory in bytes. Shorthand for a
// dedicated controller with only a memory budget.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.controller = resource.NewController(resource.Config{
			MemoryLimitBytes: bytes,
		})
	}
}

// WithCompression selects the snapshot compression codec by name
// ("zstd", "lz4", "none"). The default is zstd.
func WithCompression(name string) Option {
	return func(o *options) {
		o.compression = name
	}
}

func applyOptions(optFns []Option) options {
	opts := options{compression: snapshot.DefaultOptions.Compression}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// New builds a container of type t. Without options, memory is unlimited.
//
// t must be concrete (panics otherwise). Returns ErrOutOfMemory when the
// configured budget cannot hold the container.
func New(t *typedesc.Type, optFns ...Option) (*container.Container, error) {
	opts := applyOptions(optFns)
	return container.New(t, opts.controller)
}

// Save persists c to store under name as a compressed, checksummed
// snapshot.
func Save(ctx context.Context, store blobstore.Store, name string, c *container.Container, optFns ...Option) error {
	opts := applyOptions(optFns)
	return snapshot.Write(ctx, store, name, c, func(o *snapshot.Options) {
		o.Compression = opts.compression
		o.Controller = opts.controller
	})
}

// Load restores a container from store under name. The restored container
// is charged against the configured controller; Close returns the budget.
func Load(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*container.Container, error) {
	opts := applyOptions(optFns)
	return snapshot.Read(ctx, store, name, func(o *snapshot.Options) {
		o.Controller = opts.controller
	})
}
