package persistence

import (
	"log/slog"
	"os"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// WithFilename sets the datafile path. It cannot end with "~", which is
// reserved for the backup written during compaction.
func WithFilename(f string) Option {
	return func(po *Persistence) {
		po.filename = f
	}
}

// WithCorruptAlertThreshold sets the share of unreadable lines above which
// loading fails.
func WithCorruptAlertThreshold(c float64) Option {
	return func(po *Persistence) {
		po.corruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of the datafile.
func WithFileMode(f os.FileMode) Option {
	return func(po *Persistence) {
		po.fileMode = f
	}
}

// WithDirMode sets the permissions of the datafile directory.
func WithDirMode(d os.FileMode) Option {
	return func(po *Persistence) {
		po.dirMode = d
	}
}

// WithSerializer sets the serializer writing records.
func WithSerializer(s domain.Serializer) Option {
	return func(po *Persistence) {
		po.serializer = s
	}
}

// WithDeserializer sets the deserializer reading records.
func WithDeserializer(d domain.Deserializer) Option {
	return func(po *Persistence) {
		po.deserializer = d
	}
}

// WithStorage sets the storage implementation for file operations.
func WithStorage(s domain.Storage) Option {
	return func(po *Persistence) {
		po.storage = s
	}
}

// WithLogger sets the logger receiving compaction and corruption events.
func WithLogger(l *slog.Logger) Option {
	return func(po *Persistence) {
		po.logger = l
	}
}

// Option configures persistence behavior through the functional
// options pattern.
type Option func(*Persistence)
