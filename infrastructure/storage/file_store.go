package storage

import (
	"errors"
	"os"
	"path/filepath"

	"downloader/domain/model"

	"github.com/spf13/afero"
)

// IFileStore resolves and manages files in the download directory.
type IFileStore interface {
	// Path joins the download directory with the base name of fileName.
	Path(fileName string) string
	Exists(fileName string) (bool, error)
	Stat(fileName string) (os.FileInfo, error)
	Open(fileName string) (afero.File, error)
	// Remove deletes the file. A file that is already gone is not an error.
	Remove(fileName string) error
	EnsureDir() error
}

type FileStore struct {
	fs  afero.Fs
	dir string
}

func NewFileStore(fs afero.Fs, dir string) IFileStore {
	return &FileStore{fs: fs, dir: dir}
}

// NewOsFileStore is the production store rooted at dir on the local disk.
func NewOsFileStore(dir string) IFileStore {
	return NewFileStore(afero.NewOsFs(), dir)
}

func (s *FileStore) Path(fileName string) string {
	return filepath.Join(s.dir, filepath.Base(fileName))
}

func (s *FileStore) EnsureDir() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return &model.StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

func (s *FileStore) Exists(fileName string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.Path(fileName))
	if err != nil {
		return false, &model.StorageError{Op: "stat", Path: s.Path(fileName), Err: err}
	}
	return ok, nil
}

func (s *FileStore) Stat(fileName string) (os.FileInfo, error) {
	info, err := s.fs.Stat(s.Path(fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.ErrFileMissing
		}
		return nil, &model.StorageError{Op: "stat", Path: s.Path(fileName), Err: err}
	}
	return info, nil
}

func (s *FileStore) Open(fileName string) (afero.File, error) {
	f, err := s.fs.Open(s.Path(fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.ErrFileMissing
		}
		return nil, &model.StorageError{Op: "open", Path: s.Path(fileName), Err: err}
	}
	return f, nil
}

func (s *FileStore) Remove(fileName string) error {
	if fileName == "" {
		return nil
	}
	err := s.fs.Remove(s.Path(fileName))
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return &model.StorageError{Op: "remove", Path: s.Path(fileName), Err: err}
}
