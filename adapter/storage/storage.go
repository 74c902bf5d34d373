// Package storage contains the default [domain.Storage] implementation.
package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Storage implements domain.Storage over the local disk.
type Storage struct {
	fs       fileSystem
	syncDirs bool
}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage(options ...Option) domain.Storage {
	s := &Storage{
		fs:       disk{},
		syncDirs: runtime.GOOS != "windows",
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// AppendFile implements domain.Storage.
func (s *Storage) AppendFile(filename string, mode os.FileMode, data []byte) (int, error) {
	f, err := s.fs.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := f.Write(data)
	if err != nil {
		return n, err
	}
	return n, f.Sync()
}

// CrashSafeWriteFileLines implements domain.Storage. Lines are written to a
// temporary file named after filename with a "~" suffix, which then replaces
// filename.
func (s *Storage) CrashSafeWriteFileLines(filename string, lines [][]byte, dirMode os.FileMode, fileMode os.FileMode) error {
	tempFilename := filename + "~"

	if err := s.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := s.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := s.writeFileLines(tempFilename, lines, fileMode); err != nil {
		return err
	}
	if err := s.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}
	if err := s.fs.Rename(tempFilename, filename); err != nil {
		return err
	}
	return s.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements domain.Storage.
func (s *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + "~"

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	backupExists, err := s.Exists(tempFilename)
	if err != nil {
		return err
	}
	if !backupExists {
		return s.fs.WriteFile(filename, nil, mode)
	}
	return s.fs.Rename(tempFilename, filename)
}

// EnsureParentDirectoryExists implements domain.Storage. A filesystem or
// volume root is assumed to exist.
func (s *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return err
	}
	if filepath.Dir(dir) == dir {
		return nil
	}
	return s.fs.MkdirAll(dir, mode)
}

// Exists implements domain.Storage.
func (s *Storage) Exists(filename string) (bool, error) {
	if _, err := s.fs.Stat(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadFileStream implements domain.Storage.
func (s *Storage) ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error) {
	return s.fs.OpenFile(filename, os.O_RDONLY, mode)
}

// Remove implements domain.Storage.
func (s *Storage) Remove(filename string) error {
	return s.fs.Remove(filename)
}

// flushToStorage fsyncs filename. Directories are skipped unless directory
// sync is enabled.
func (s *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		if !s.syncDirs {
			return nil
		}
		flags = os.O_RDONLY
	}

	f, err := s.fs.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}

func (s *Storage) writeFileLines(filename string, lines [][]byte, mode os.FileMode) error {
	f, err := s.fs.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}
