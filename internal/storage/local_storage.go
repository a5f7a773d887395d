package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var ErrInvalidKey = errors.New("storage: invalid content key")

// ContentStore holds document contents under opaque keys. The database
// row is authoritative; a key with no object behind it is treated the
// same as empty content by callers.
type ContentStore interface {
	Put(key string, data io.Reader) error
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// LocalStorage keeps contents as gzip-compressed files on disk. Writes
// go to a temp file first and are renamed into place, so readers never
// observe a half-written object.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) pathFromKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(key)+".gz"), nil
}

func (ls *LocalStorage) Put(key string, data io.Reader) error {
	filePath, err := ls.pathFromKey(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	zw := gzip.NewWriter(tmp)
	if _, err := io.Copy(zw, data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filePath)
}

func (ls *LocalStorage) Get(key string) (io.ReadCloser, error) {
	filePath, err := ls.pathFromKey(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content with key %s not found: %w", key, err)
		}
		return nil, err
	}

	zr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &contentReader{zr: zr, file: file}, nil
}

func (ls *LocalStorage) Delete(key string) error {
	filePath, err := ls.pathFromKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

type contentReader struct {
	zr   *gzip.Reader
	file *os.File
}

func (r *contentReader) Read(p []byte) (int, error) { return r.zr.Read(p) }

func (r *contentReader) Close() error {
	zerr := r.zr.Close()
	ferr := r.file.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
