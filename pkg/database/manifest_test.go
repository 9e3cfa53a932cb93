package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iziplay/pubmed-records/pkg/convert"
	"github.com/iziplay/pubmed-records/pkg/pubmed"
)

func TestArchiveFromResult(t *testing.T) {
	a := archiveFromResult("run-1", convert.FileResult{
		Archive:  "/in/pubmed25n0001.xml.gz",
		Name:     "pubmed25n0001",
		Artifact: "pubmed25n0001.msgpack",
		Records:  10,
		Articles: 11,
		Skipped:  1,
		Deleted:  2,
		Warnings: []pubmed.FieldWarning{
			{ID: "1", Field: "publication_date"},
			{ID: "2", Field: "issn"},
			{ID: "3", Field: "publication_date"},
		},
		Bytes:    2048,
		Duration: 1500 * time.Millisecond,
	})

	assert.Equal(t, "pubmed25n0001", a.Name)
	assert.Equal(t, "run-1", a.Run)
	assert.Equal(t, "converted", a.Status)
	assert.Equal(t, 10, a.Records)
	assert.Equal(t, 3, a.Warnings)
	assert.Equal(t, []string{"issn", "publication_date"}, []string(a.WarningFields))
	assert.Equal(t, int64(1500), a.DurationMs)
	assert.Empty(t, a.Error)
}

func TestArchiveFromFailedResult(t *testing.T) {
	a := archiveFromResult("run-1", convert.FileResult{
		Name: "bad",
		Err:  errors.New("corrupt archive: bad\x00name"),
	})
	assert.Equal(t, "failed", a.Status)
	assert.Equal(t, "corrupt archive: badname", a.Error)
	assert.Empty(t, a.WarningFields)

	a = archiveFromResult("run-1", convert.FileResult{Name: "old", Existing: true})
	assert.Equal(t, "existing", a.Status)
}

func TestDSNFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	assert.Equal(t, "", DSNFromEnv())

	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DATABASE", "pubmed")
	t.Setenv("POSTGRES_PORT", "5432")
	assert.Equal(t, "host=db user=u password=p dbname=pubmed port=5432 sslmode=disable", DSNFromEnv())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `pubmed25\_n\%`, escapeLike("pubmed25_n%"))
}
