package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	"github.com/iziplay/pubmed-records/pkg/pubmed"
)

var (
	ErrUnknownFormat      = errors.New("unknown artifact format")
	ErrUnknownCompression = errors.New("unknown artifact compression")
)

type Format string

const (
	FormatMsgpack Format = "msgpack"
	FormatJSONL   Format = "jsonl"
)

type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
)

// Options selects how a batch is serialized. The zero value is msgpack
// without compression.
type Options struct {
	Format      Format
	Compression Compression
}

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatMsgpack:
		return FormatMsgpack, nil
	case FormatJSONL:
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionSnappy:
		return CompressionSnappy, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (o Options) format() Format {
	if o.Format == "" {
		return FormatMsgpack
	}
	return o.Format
}

func (o Options) Validate() error {
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	_, err := ParseCompression(string(o.Compression))
	return err
}

// Extension returns the file suffix of an artifact, e.g. ".msgpack" or
// ".jsonl.sz".
func (o Options) Extension() string {
	ext := "." + string(o.format())
	if o.Compression == CompressionSnappy {
		ext += ".sz"
	}
	return ext
}

// Encode writes records to w. The output only depends on the records, so
// encoding the same batch twice yields identical bytes.
func Encode(w io.Writer, opts Options, records []pubmed.Record) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	var sw *snappy.Writer
	if opts.Compression == CompressionSnappy {
		sw = snappy.NewBufferedWriter(w)
		w = sw
	}

	var err error
	switch opts.format() {
	case FormatJSONL:
		err = encodeJSONL(w, records)
	default:
		err = encodeMsgpack(w, records)
	}
	if err != nil {
		return err
	}

	if sw != nil {
		return sw.Close()
	}
	return nil
}

// Marshal encodes records into memory.
func Marshal(opts Options, records []pubmed.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, opts, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(r io.Reader, opts Options) io.Reader {
	if opts.Compression == CompressionSnappy {
		return snappy.NewReader(r)
	}
	return r
}

// ReadRecords decodes an artifact back into records.
func ReadRecords(r io.Reader, opts Options) ([]pubmed.Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r = decompress(r, opts)
	if opts.format() == FormatJSONL {
		return readJSONL[pubmed.Record](r)
	}
	return readMsgpackRecords(r)
}

// ReadMaps decodes an artifact into generic key/value mappings, the way a
// downstream consumer without the Record type sees it.
func ReadMaps(r io.Reader, opts Options) ([]map[string]any, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r = decompress(r, opts)
	if opts.format() == FormatJSONL {
		return readJSONL[map[string]any](r)
	}
	return readMsgpackMaps(r)
}

// OptionsForName infers the encoding of an artifact from its file name, the
// inverse of Extension.
func OptionsForName(name string) (Options, error) {
	opts := Options{Format: FormatMsgpack, Compression: CompressionNone}

	ext := filepath.Ext(name)
	if ext == ".sz" {
		opts.Compression = CompressionSnappy
		name = strings.TrimSuffix(name, ext)
		ext = filepath.Ext(name)
	}

	format, err := ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		return Options{}, fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, name)
	}
	opts.Format = format
	return opts, nil
}
