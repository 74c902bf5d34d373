package storage

import (
	"os"
)

// fileSystem is the part of the OS the datafile needs. Tests replace it to
// inject failures.
type fileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type disk struct{}

func (disk) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (disk) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (disk) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (disk) Remove(name string) error { return os.Remove(name) }

func (disk) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (disk) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
