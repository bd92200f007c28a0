package classgraph

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/torstenkuhnhenne/classgraph/scanspec"
	"github.com/torstenkuhnhenne/classgraph/vfs"
)

// DefaultStreamThreshold is the file size at which resource opens switch from
// a buffered stream to a memory-mapped read. Mapping small files costs more
// than it saves.
const DefaultStreamThreshold = 16 << 20

// config carries the shared settings behind Element and Scanner.
type config struct {
	spec      *scanspec.Spec
	fsys      vfs.FS
	log       *zap.Logger
	threshold int64
	workers   int
	loader    any
}

// Option configures an Element or Scanner under construction.
type Option func(*config)

func newConfig(opts ...Option) *config {
	cfg := &config{
		spec:      scanspec.New(),
		fsys:      vfs.NewOS(),
		log:       zap.NewNop(),
		threshold: DefaultStreamThreshold,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithSpec sets the include/exclude policy. The default policy includes
// everything.
func WithSpec(spec *scanspec.Spec) Option {
	return func(c *config) {
		if spec != nil {
			c.spec = spec
		}
	}
}

// WithFilesystem sets a custom filesystem implementation.
// This allows scanning in-memory trees for testing or virtual classpaths.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(fsys vfs.FS) Option {
	return func(c *config) {
		if fsys != nil {
			c.fsys = fsys
		}
	}
}

// WithLogger sets the logger for scan tracing. Logging is side-effect-only
// and never changes scan behavior. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStreamThreshold sets the file size at or above which resources are
// memory-mapped instead of streamed. Default is DefaultStreamThreshold.
func WithStreamThreshold(threshold int64) Option {
	return func(c *config) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithWorkers sets the number of concurrent root scans in a Scanner.
// Default is GOMAXPROCS. Traversal within one root is always single-threaded.
func WithWorkers(workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithLoader attaches an opaque loader reference that is carried on every
// work unit submitted from the configured roots. Ownership stays with the
// caller; the scanner never inspects it.
func WithLoader(loader any) Option {
	return func(c *config) {
		c.loader = loader
	}
}
