package storage

// WithDirectorySync sets whether the datafile directory is fsynced after a
// rewrite, making the rename durable. Windows cannot open directories for
// syncing, so it defaults to false there and true elsewhere.
func WithDirectorySync(sync bool) Option {
	return func(s *Storage) {
		s.syncDirs = sync
	}
}

// Option configures the storage through the functional options pattern.
type Option func(*Storage)
