package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Filesystem keeps files under a directory. Names cannot escape it, through
// ".." or symlinks.
type Filesystem struct {
	root *os.Root
}

func newFilesystem(dir string) (*Filesystem, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) WriteFile(_ context.Context, name string, data []byte) error {
	file, err := f.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	written, err := file.Write(data)
	if err != nil {
		file.Close()
		return err
	}
	if written != len(data) {
		file.Close()
		return io.ErrShortWrite
	}
	return file.Close()
}

func (f *Filesystem) ReadFile(_ context.Context, name string) ([]byte, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func (f *Filesystem) Close() error {
	return f.root.Close()
}
