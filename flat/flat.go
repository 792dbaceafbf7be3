// Package flat writes and reads gzipped record archives.
// Writers and readers hold a flock on the file while open, so a
// running daemon and an export command never interleave writes.
package flat

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

type Flat struct {
	// path is the archive directory.
	path string
}

func NewFlatWithRoot(root string) *Flat {
	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		root, _ = filepath.Abs(root)
	}
	return &Flat{path: root}
}

// Joining returns a new Flat rooted at path/paths...
func (f *Flat) Joining(paths ...string) *Flat {
	return &Flat{path: filepath.Join(append([]string{f.path}, paths...)...)}
}

// Exists returns true if the directory exists.
func (f *Flat) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *Flat) MkdirAll() error {
	return os.MkdirAll(f.path, 0770)
}

func (f *Flat) Path() string {
	return f.path
}

func (f *Flat) NamedGZWriter(name string, config *GZFileWriterConfig) (*GZFileWriter, error) {
	if config == nil {
		config = DefaultGZFileWriterConfig()
	}
	return NewGZFileWriter(filepath.Join(f.path, name), config)
}

func (f *Flat) NamedGZReader(name string) (*GZFileReader, error) {
	return NewGZFileReader(filepath.Join(f.path, name))
}

type GZFileWriterConfig struct {
	CompressionLevel int
	Flag             int
	FilePerm         os.FileMode
	DirPerm          os.FileMode
}

func DefaultGZFileWriterConfig() *GZFileWriterConfig {
	return &GZFileWriterConfig{
		CompressionLevel: gzip.BestCompression,
		Flag:             os.O_WRONLY | os.O_APPEND | os.O_CREATE,
		FilePerm:         0660,
		DirPerm:          0770,
	}
}

// TruncatingGZFileWriterConfig replaces any existing archive.
func TruncatingGZFileWriterConfig() *GZFileWriterConfig {
	c := DefaultGZFileWriterConfig()
	c.Flag = os.O_WRONLY | os.O_TRUNC | os.O_CREATE
	return c
}

// GZFileWriter is an io.WriteCloser over a gzipped file.
// An exclusive lock is held from open until Close.
type GZFileWriter struct {
	f   *os.File
	gzw *gzip.Writer
}

func NewGZFileWriter(path string, config *GZFileWriterConfig) (*GZFileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	fi, err := os.OpenFile(path, config.Flag, config.FilePerm)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(fi.Fd()), syscall.LOCK_EX); err != nil {
		fi.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	gzw, err := gzip.NewWriterLevel(fi, config.CompressionLevel)
	if err != nil {
		_ = syscall.Flock(int(fi.Fd()), syscall.LOCK_UN)
		fi.Close()
		return nil, err
	}
	return &GZFileWriter{f: fi, gzw: gzw}, nil
}

func (g *GZFileWriter) Write(p []byte) (int, error) {
	return g.gzw.Write(p)
}

func (g *GZFileWriter) Close() error {
	if err := g.gzw.Close(); err != nil {
		return err
	}
	if err := g.f.Sync(); err != nil {
		return err
	}
	if err := syscall.Flock(int(g.f.Fd()), syscall.LOCK_UN); err != nil {
		return err
	}
	return g.f.Close()
}

func (g *GZFileWriter) Path() string {
	return g.f.Name()
}

// GZFileReader is an io.ReadCloser over a gzipped file.
// A shared lock is held from open until Close.
// Appended archives hold several gzip members; they read as one stream.
type GZFileReader struct {
	f      *os.File
	gzr    *gzip.Reader
	closed bool
}

func NewGZFileReader(path string) (*GZFileReader, error) {
	fi, err := os.OpenFile(path, os.O_RDONLY, 0660)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(fi.Fd()), syscall.LOCK_SH); err != nil {
		fi.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	gzr, err := gzip.NewReader(fi)
	if err != nil {
		_ = syscall.Flock(int(fi.Fd()), syscall.LOCK_UN)
		fi.Close()
		return nil, err
	}
	return &GZFileReader{f: fi, gzr: gzr}, nil
}

func (g *GZFileReader) Read(p []byte) (int, error) {
	return g.gzr.Read(p)
}

func (g *GZFileReader) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if err := g.gzr.Close(); err != nil {
		return err
	}
	if err := syscall.Flock(int(g.f.Fd()), syscall.LOCK_UN); err != nil {
		return err
	}
	return g.f.Close()
}
