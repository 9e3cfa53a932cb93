package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/net/html/charset"
)

// ErrMalformedDocument is returned when the decompressed content is not
// well-formed XML. It fails the whole archive.
var ErrMalformedDocument = errors.New("malformed document")

// tables lists the article elements and how each is mapped to a Record.
var tables = map[string]Table{
	"PubmedArticle":     ArticleTable,
	"PubmedBookArticle": BookTable,
}

var deletedPMID = MustPath("PMID")

// latcher is implemented by readers that remember a lower level stream error,
// such as archive.Reader.
type latcher interface {
	Err() error
}

// Extract parses one decompressed PubMed XML document and returns the records
// of all article elements in document order. Either the complete batch is
// returned or an error, never both.
func Extract(ctx context.Context, name string, r io.Reader) (*ArchiveBatch, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity

	batch := &ArchiveBatch{
		Archive:  name,
		Records:  []Record{},
		Warnings: []FieldWarning{},
	}

	sawRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classify(r, name, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		if start.Name.Local == "DeleteCitation" {
			var n Node
			if err := d.DecodeElement(&n, &start); err != nil {
				return nil, classify(r, name, err)
			}
			batch.Deleted += len(n.Values(deletedPMID))
			continue
		}

		table, ok := tables[start.Name.Local]
		if !ok {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var n Node
		if err := d.DecodeElement(&n, &start); err != nil {
			return nil, classify(r, name, err)
		}
		batch.Articles++

		rec, warnings, ok := table.Build(&n)
		if !ok {
			batch.Skipped++
			slog.Debug("Skipping article without identifier", "archive", name, "element", batch.Articles)
			continue
		}
		batch.Records = append(batch.Records, rec)
		batch.Warnings = append(batch.Warnings, warnings...)
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: %s: no root element", ErrMalformedDocument, name)
	}

	return batch, nil
}

// classify maps a parse failure to the archive level error kind: a latched
// decompression error wins over the XML error it caused.
func classify(r io.Reader, name string, err error) error {
	if l, ok := r.(latcher); ok && l.Err() != nil {
		return l.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedDocument, name, err)
}
