package artifact

import (
	"fmt"
	"io"

	"github.com/tinylib/msgp/msgp"

	"github.com/iziplay/pubmed-records/pkg/pubmed"
)

// recordKeys is the number of keys of an encoded Record.
const recordKeys = 20

// maxPrealloc bounds slice preallocation from untrusted length headers.
const maxPrealloc = 1 << 16

type msgpackEncoder struct {
	w   *msgp.Writer
	err error
}

func (e *msgpackEncoder) str(s string) {
	if e.err == nil {
		e.err = e.w.WriteString(s)
	}
}

func (e *msgpackEncoder) mapHeader(n int) {
	if e.err == nil {
		e.err = e.w.WriteMapHeader(uint32(n))
	}
}

func (e *msgpackEncoder) arrayHeader(n int) {
	if e.err == nil {
		e.err = e.w.WriteArrayHeader(uint32(n))
	}
}

func (e *msgpackEncoder) field(key, value string) {
	e.str(key)
	e.str(value)
}

func (e *msgpackEncoder) list(key string, values []string) {
	e.str(key)
	e.arrayHeader(len(values))
	for _, v := range values {
		e.str(v)
	}
}

func (e *msgpackEncoder) record(r pubmed.Record) {
	e.mapHeader(recordKeys)
	e.field("id", r.ID)
	e.field("version", r.Version)
	e.field("title", r.Title)
	e.field("abstract", r.Abstract)

	e.str("abstract_sections")
	e.arrayHeader(len(r.AbstractSections))
	for _, s := range r.AbstractSections {
		e.mapHeader(3)
		e.field("label", s.Label)
		e.field("category", s.Category)
		e.field("text", s.Text)
	}

	e.list("authors", r.Authors)
	e.field("journal", r.Journal)
	e.field("journal_abbrev", r.JournalAbbrev)
	e.field("issn", r.ISSN)
	e.field("publication_date", r.PublicationDate)
	e.field("history_date", r.HistoryDate)
	e.field("language", r.Language)
	e.field("medline_status", r.MedlineStatus)
	e.list("publication_types", r.PublicationTypes)
	e.list("keywords", r.Keywords)
	e.list("mesh_terms", r.MeshTerms)
	e.list("mesh_ids", r.MeshIDs)

	e.str("data_banks")
	e.arrayHeader(len(r.DataBanks))
	for _, db := range r.DataBanks {
		e.mapHeader(2)
		e.field("name", db.Name)
		e.field("id", db.ID)
	}

	e.field("doi", r.DOI)
	e.field("kind", r.Kind)
}

// encodeMsgpack writes a single MessagePack array holding one map per record.
func encodeMsgpack(w io.Writer, records []pubmed.Record) error {
	e := &msgpackEncoder{w: msgp.NewWriter(w)}
	e.arrayHeader(len(records))
	for _, r := range records {
		e.record(r)
	}
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func readMsgpackMaps(r io.Reader) ([]map[string]any, error) {
	mr := msgp.NewReader(r)
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		m := make(map[string]any, recordKeys)
		if err := mr.ReadMapStrIntf(m); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func readMsgpackRecords(r io.Reader) ([]pubmed.Record, error) {
	mr := msgp.NewReader(r)
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}

	out := make([]pubmed.Record, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		rec, err := readRecord(mr)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func readStrings(mr *msgp.Reader) ([]string, error) {
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		s, err := mr.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readStringMaps reads an array of string-to-string maps.
func readStringMaps(mr *msgp.Reader, fn func(key, value string)) (int, error) {
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < n; i++ {
		sz, err := mr.ReadMapHeader()
		if err != nil {
			return 0, err
		}
		for j := uint32(0); j < sz; j++ {
			key, err := mr.ReadString()
			if err != nil {
				return 0, err
			}
			value, err := mr.ReadString()
			if err != nil {
				return 0, err
			}
			fn(key, value)
		}
	}
	return int(n), nil
}

func readSections(mr *msgp.Reader) ([]pubmed.AbstractSection, error) {
	out := []pubmed.AbstractSection{}
	var cur pubmed.AbstractSection
	// keys arrive in encoding order, "text" closes a section
	_, err := readStringMaps(mr, func(key, value string) {
		switch key {
		case "label":
			cur.Label = value
		case "category":
			cur.Category = value
		case "text":
			cur.Text = value
			out = append(out, cur)
			cur = pubmed.AbstractSection{}
		}
	})
	return out, err
}

func readDataBanks(mr *msgp.Reader) ([]pubmed.DataBank, error) {
	out := []pubmed.DataBank{}
	var cur pubmed.DataBank
	_, err := readStringMaps(mr, func(key, value string) {
		switch key {
		case "name":
			cur.Name = value
		case "id":
			cur.ID = value
			out = append(out, cur)
			cur = pubmed.DataBank{}
		}
	})
	return out, err
}

func readRecord(mr *msgp.Reader) (pubmed.Record, error) {
	var rec pubmed.Record
	sz, err := mr.ReadMapHeader()
	if err != nil {
		return rec, err
	}

	for i := uint32(0); i < sz; i++ {
		key, err := mr.ReadString()
		if err != nil {
			return rec, err
		}

		switch key {
		case "id":
			rec.ID, err = mr.ReadString()
		case "version":
			rec.Version, err = mr.ReadString()
		case "title":
			rec.Title, err = mr.ReadString()
		case "abstract":
			rec.Abstract, err = mr.ReadString()
		case "abstract_sections":
			rec.AbstractSections, err = readSections(mr)
		case "authors":
			rec.Authors, err = readStrings(mr)
		case "journal":
			rec.Journal, err = mr.ReadString()
		case "journal_abbrev":
			rec.JournalAbbrev, err = mr.ReadString()
		case "issn":
			rec.ISSN, err = mr.ReadString()
		case "publication_date":
			rec.PublicationDate, err = mr.ReadString()
		case "history_date":
			rec.HistoryDate, err = mr.ReadString()
		case "language":
			rec.Language, err = mr.ReadString()
		case "medline_status":
			rec.MedlineStatus, err = mr.ReadString()
		case "publication_types":
			rec.PublicationTypes, err = readStrings(mr)
		case "keywords":
			rec.Keywords, err = readStrings(mr)
		case "mesh_terms":
			rec.MeshTerms, err = readStrings(mr)
		case "mesh_ids":
			rec.MeshIDs, err = readStrings(mr)
		case "data_banks":
			rec.DataBanks, err = readDataBanks(mr)
		case "doi":
			rec.DOI, err = mr.ReadString()
		case "kind":
			rec.Kind, err = mr.ReadString()
		default:
			err = mr.Skip()
		}
		if err != nil {
			return rec, fmt.Errorf("key %q: %w", key, err)
		}
	}

	return rec, nil
}
