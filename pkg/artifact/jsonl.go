package artifact

import (
	"errors"
	"io"

	"github.com/goccy/go-json"

	"github.com/iziplay/pubmed-records/pkg/pubmed"
)

// encodeJSONL writes one JSON object per line. Keys follow the Record field
// order.
func encodeJSONL(w io.Writer, records []pubmed.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func readJSONL[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	out := []T{}
	for {
		var v T
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
