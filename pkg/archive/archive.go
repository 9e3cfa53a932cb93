package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrCorrupt is returned when an archive is not in the expected compression
// format or its compressed stream is damaged.
var ErrCorrupt = errors.New("corrupt archive")

type Format string

const (
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
	FormatPlain Format = "xml"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

const peekSize = 64 * 1024

// Reader is a forward-only stream over the decompressed content of one
// archive. The first decompression error is latched and returned again by Err,
// so a caller that only sees a downstream parse failure can tell a damaged
// archive from a damaged document.
type Reader struct {
	name   string
	format Format
	src    io.Reader
	closer []func() error
	n      int64
	err    error

	consumed atomic.Int64
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Identity returns the archive identity used to name its artifact: the base
// name up to the first dot ("pubmed25n0001.xml.gz" -> "pubmed25n0001").
func Identity(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// Open opens the archive at path and prepares a decompressing stream over it.
// The returned Reader owns the file handle and must be closed.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	r, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = append([]func() error{f.Close}, r.closer...)

	return r, nil
}

// NewReader wraps an already open compressed stream. name is used for format
// detection by extension and in error messages.
func NewReader(in io.Reader, name string) (*Reader, error) {
	r := &Reader{name: name}
	br := bufio.NewReaderSize(&countingReader{r: in, n: &r.consumed}, peekSize)
	head, _ := br.Peek(len(zstdMagic))

	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
		}
		r.format = FormatGzip
		r.src = gz
		r.closer = append(r.closer, gz.Close)
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
		}
		r.format = FormatZstd
		r.src = dec
		r.closer = append(r.closer, func() error {
			dec.Close()
			return nil
		})
	case ext == ".gz" || ext == ".zst" || ext == ".zstd":
		return nil, fmt.Errorf("%w: %s: unrecognised %s header", ErrCorrupt, name, ext)
	default:
		r.format = FormatPlain
		r.src = br
	}

	return r, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	n, err := r.src.Read(p)
	r.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = fmt.Errorf("%w: %s: %w", ErrCorrupt, r.name, err)
		return n, r.err
	}

	return n, err
}

// Err returns the latched decompression error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Format reports the detected container format.
func (r *Reader) Format() Format {
	return r.format
}

// BytesRead is the number of decompressed bytes handed out so far.
func (r *Reader) BytesRead() int64 {
	return r.n
}

// Consumed is the number of compressed bytes pulled from the underlying
// stream. It may be called concurrently with Read to report progress.
func (r *Reader) Consumed() int64 {
	return r.consumed.Load()
}

// Close releases the decompressor and the underlying file, innermost first.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closer) - 1; i >= 0; i-- {
		if err := r.closer[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closer = nil
	return errors.Join(errs...)
}
