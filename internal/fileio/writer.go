package fileio

import (
	"io"
	"os"
	"path/filepath"
)

// StdoutPath selects standard output instead of a file.
const StdoutPath = "-"

// Writer is a struct for writing report documents
type Writer struct {
	// rootDir is the root directory relative paths are resolved against, useful for testing
	rootDir string
	stdout  io.Writer
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{stdout: os.Stdout}
}

// SetRootdir sets the root directory for the writer, useful for testing
func (r *Writer) SetRootdir(path string) {
	r.rootDir = path
}

// SetStdout replaces the destination of StdoutPath, useful for testing
func (r *Writer) SetStdout(w io.Writer) {
	r.stdout = w
}

// PathFor returns the full path for the provided file. Absolute paths are
// kept as they are.
func (r *Writer) PathFor(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(r.rootDir, filePath)
}

// WriteFile writes data at the provided path, creating missing parent
// directories. The file is written next to its destination and renamed into
// place so a failed run never leaves a truncated report behind.
func (r *Writer) WriteFile(filePath string, data []byte) error {
	if filePath == StdoutPath {
		_, err := r.stdout.Write(data)
		return err
	}

	target := r.PathFor(filePath)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
