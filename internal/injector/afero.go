package injector

import (
	"io/fs"

	"github.com/spf13/afero"
)

// aferoFS implements FS using afero. Writes go straight to the target file.
type aferoFS struct {
	fs afero.Fs
}

// NewAferoFS creates an FS backed by an afero filesystem, e.g. a read-only
// or copy-on-write layer over the OS filesystem
func NewAferoFS(fsys afero.Fs) FS {
	return &aferoFS{fs: fsys}
}

func (a *aferoFS) Stat(name string) (fs.FileInfo, error) {
	return a.fs.Stat(name)
}

func (a *aferoFS) Fs() afero.Fs {
	return a.fs
}

func (a *aferoFS) ReadFile(name string) ([]byte, error) {
	info, err := a.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return afero.ReadFile(a.fs, name)
}

func (a *aferoFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(a.fs, name, data, perm)
}
