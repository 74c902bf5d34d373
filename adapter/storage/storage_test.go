package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

type fsMock struct {
	disk
	mock.Mock
}

func (o *fsMock) Rename(oldpath string, newpath string) error {
	return o.Called(oldpath, newpath).Error(0)
}

func (o *fsMock) Stat(name string) (os.FileInfo, error) {
	call := o.Called(name)
	if call.Get(0) == nil {
		return nil, call.Error(1)
	}
	return call.Get(0).(os.FileInfo), call.Error(1)
}

// recordingFS remembers the paths opened and created.
type recordingFS struct {
	disk
	opened  []string
	created []string
}

func (r *recordingFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	r.opened = append(r.opened, name)
	return r.disk.OpenFile(name, flag, perm)
}

func (r *recordingFS) MkdirAll(path string, perm os.FileMode) error {
	r.created = append(r.created, path)
	return r.disk.MkdirAll(path, perm)
}

type StorageTestSuite struct {
	suite.Suite
	s   *Storage
	dir string
}

func (s *StorageTestSuite) SetupTest() {
	s.s = NewStorage().(*Storage)
	s.dir = s.T().TempDir()
}

func (s *StorageTestSuite) read(name string) string {
	b, err := os.ReadFile(name)
	s.Require().NoError(err)
	return string(b)
}

func (s *StorageTestSuite) TestAppendFile() {
	name := filepath.Join(s.dir, "data.db")
	n, err := s.s.AppendFile(name, 0o644, []byte("a\n"))
	s.NoError(err)
	s.Equal(2, n)
	_, err = s.s.AppendFile(name, 0o644, []byte("b\n"))
	s.NoError(err)
	s.Equal("a\nb\n", s.read(name))

	_, err = s.s.AppendFile(filepath.Join(s.dir, "missing", "data.db"), 0o644, nil)
	s.Error(err)
}

func (s *StorageTestSuite) TestCrashSafeWriteFileLines() {
	name := filepath.Join(s.dir, "data.db")
	s.Require().NoError(os.WriteFile(name, []byte("old\n"), 0o644))

	err := s.s.CrashSafeWriteFileLines(name, [][]byte{[]byte("one"), []byte("two")}, 0o755, 0o644)
	s.NoError(err)
	s.Equal("one\ntwo\n", s.read(name))

	exists, err := s.s.Exists(name + "~")
	s.NoError(err)
	s.False(exists)
}

func (s *StorageTestSuite) TestCrashSafeWriteFailures() {
	err := s.s.CrashSafeWriteFileLines(filepath.Join(s.dir, "missing", "data.db"), nil, 0o755, 0o644)
	s.ErrorAs(err, &domain.ErrFlushToStorage{})

	m := new(fsMock)
	s.s.fs = m
	name := filepath.Join(s.dir, "data.db")
	m.On("Stat", name).Return(nil, os.ErrNotExist).Once()
	m.On("Rename", name+"~", name).Return(errors.New("rename failed")).Once()

	err = s.s.CrashSafeWriteFileLines(name, [][]byte{[]byte("x")}, 0o755, 0o644)
	s.EqualError(err, "rename failed")
	s.Equal("x\n", s.read(name+"~"))
	m.AssertExpectations(s.T())
}

func (s *StorageTestSuite) TestEnsureDatafileIntegrity() {
	name := filepath.Join(s.dir, "data.db")

	s.NoError(s.s.EnsureDatafileIntegrity(name, 0o644))
	s.Equal("", s.read(name))

	s.Require().NoError(os.WriteFile(name, []byte("kept\n"), 0o644))
	s.NoError(s.s.EnsureDatafileIntegrity(name, 0o644))
	s.Equal("kept\n", s.read(name))

	s.Require().NoError(os.Remove(name))
	s.Require().NoError(os.WriteFile(name+"~", []byte("backup\n"), 0o644))
	s.NoError(s.s.EnsureDatafileIntegrity(name, 0o644))
	s.Equal("backup\n", s.read(name))

	m := new(fsMock)
	s.s.fs = m
	m.On("Stat", name).Return(nil, errors.New("denied")).Once()
	s.EqualError(s.s.EnsureDatafileIntegrity(name, 0o644), "denied")
}

func (s *StorageTestSuite) TestEnsureParentDirectoryExists() {
	name := filepath.Join(s.dir, "a", "b", "data.db")
	s.NoError(s.s.EnsureParentDirectoryExists(name, 0o755))
	info, err := os.Stat(filepath.Dir(name))
	s.Require().NoError(err)
	s.True(info.IsDir())
}

func (s *StorageTestSuite) TestReadAndRemove() {
	name := filepath.Join(s.dir, "data.db")
	s.Require().NoError(os.WriteFile(name, []byte("line\n"), 0o644))

	r, err := s.s.ReadFileStream(name, 0o644)
	s.Require().NoError(err)
	b, err := io.ReadAll(r)
	s.NoError(err)
	s.NoError(r.Close())
	s.Equal("line\n", string(b))

	s.NoError(s.s.Remove(name))
	exists, err := s.s.Exists(name)
	s.NoError(err)
	s.False(exists)
}

func (s *StorageTestSuite) TestDirectorySync() {
	name := filepath.Join(s.dir, "data.db")
	lines := [][]byte{[]byte("x")}

	synced := NewStorage(WithDirectorySync(true)).(*Storage)
	rec := &recordingFS{}
	synced.fs = rec
	s.Require().NoError(synced.CrashSafeWriteFileLines(name, lines, 0o755, 0o644))
	s.Contains(rec.opened, s.dir)

	unsynced := NewStorage(WithDirectorySync(false)).(*Storage)
	rec = &recordingFS{}
	unsynced.fs = rec
	s.Require().NoError(unsynced.CrashSafeWriteFileLines(name, lines, 0o755, 0o644))
	s.NotContains(rec.opened, s.dir)
	s.Equal([]string{name, name + "~", name + "~"}, rec.opened)
	s.Equal("x\n", s.read(name))
}

func (s *StorageTestSuite) TestEnsureParentDirectoryAtRoot() {
	rec := &recordingFS{}
	s.s.fs = rec
	root, err := filepath.Abs(string(filepath.Separator))
	s.Require().NoError(err)

	s.NoError(s.s.EnsureParentDirectoryExists(filepath.Join(root, "data.db"), 0o755))
	s.Empty(rec.created)
}

func TestStorageTestSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}
