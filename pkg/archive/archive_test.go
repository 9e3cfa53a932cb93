package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0"?><PubmedArticleSet><PubmedArticle/></PubmedArticleSet>`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "pubmed25n0001", Identity("/data/pubmed25n0001.xml.gz"))
	assert.Equal(t, "noext", Identity("noext"))
	assert.Equal(t, ".hidden", Identity(".hidden"))
}

func TestOpenGzip(t *testing.T) {
	path := writeFile(t, "a.xml.gz", gzipBytes(t, sample))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))
	assert.Equal(t, FormatGzip, r.Format())
	assert.Equal(t, int64(len(sample)), r.BytesRead())
	assert.NoError(t, r.Err())
}

func TestOpenZstd(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(writeFile(t, "a.xml.zst", buf.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))
	assert.Equal(t, FormatZstd, r.Format())
}

func TestOpenPlain(t *testing.T) {
	r, err := Open(writeFile(t, "a.xml", []byte(sample)))
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))
	assert.Equal(t, FormatPlain, r.Format())
}

func TestOpenWrongHeader(t *testing.T) {
	_, err := Open(writeFile(t, "a.xml.gz", []byte("definitely not gzip")))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Open(writeFile(t, "empty.xml.gz", nil))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xml.gz"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestTruncatedGzipLatchesError(t *testing.T) {
	full := gzipBytes(t, strings.Repeat(sample, 200))
	r, err := Open(writeFile(t, "a.xml.gz", full[:len(full)/2]))
	require.NoError(t, err)
	defer r.Close()

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, r.Err(), ErrCorrupt)

	// the latched error is returned on every later read
	_, err = r.Read(make([]byte, 8))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestChecksumMismatch(t *testing.T) {
	data := gzipBytes(t, sample)
	// CRC32 sits in the 8 byte trailer
	data[len(data)-8] ^= 0xff

	r, err := NewReader(bytes.NewReader(data), "a.xml.gz")
	require.NoError(t, err)
	defer r.Close()

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestConsumedCountsCompressedBytes(t *testing.T) {
	data := gzipBytes(t, strings.Repeat(sample, 50))

	r, err := NewReader(bytes.NewReader(data), "a.xml.gz")
	require.NoError(t, err)
	defer r.Close()

	_, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), r.Consumed())
	assert.Equal(t, int64(len(sample)*50), r.BytesRead())
}
