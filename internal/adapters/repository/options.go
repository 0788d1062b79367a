package repository

// Option applies a configuration option to the BadgerStore.
type Option func(*BadgerStore)

// WithPath sets the on-disk directory. An empty path keeps data in memory.
func WithPath(path string) Option {
	return func(s *BadgerStore) {
		s.path = path
	}
}

// WithSyncWrites makes every write fsync before returning.
func WithSyncWrites(sync bool) Option {
	return func(s *BadgerStore) {
		s.syncWrites = sync
	}
}
