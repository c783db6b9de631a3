package pageengine

// options configures buffer manager construction. All fields have sane
// defaults so the zero value of options, filled in by defaultOptions, is
// always usable.
type options struct {
	segmentDir      string
	handleCacheSize int
	logger          Logger
}

func defaultOptions() *options {
	return &options{
		segmentDir:      ".",
		handleCacheSize: 0, // storage.New substitutes its own default
		logger:          discardLogger{},
	}
}

// Option configures a BufferManager at construction time.
type Option func(*options)

// WithSegmentDir sets the directory segment files are opened under. Segment
// N is named by its decimal id within this directory.
func WithSegmentDir(dir string) Option {
	return func(o *options) { o.segmentDir = dir }
}

// WithHandleCacheSize bounds how many segment file descriptors stay open
// concurrently. 0 (the default) selects a built-in default.
func WithHandleCacheSize(n int) Option {
	return func(o *options) { o.handleCacheSize = n }
}

// WithLogger routes the buffer manager's diagnostic logging (write-backs of
// dirty frames on eviction and on Close) through logger instead of
// discarding it.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
