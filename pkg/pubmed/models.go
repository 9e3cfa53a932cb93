package pubmed

// Record is the structured form of one article element. Every field is
// always populated: missing source data is "" or an empty slice, never nil.
type Record struct {
	ID               string            `json:"id"`
	Version          string            `json:"version"`
	Title            string            `json:"title"`
	Abstract         string            `json:"abstract"`
	AbstractSections []AbstractSection `json:"abstract_sections"`
	Authors          []string          `json:"authors"`
	Journal          string            `json:"journal"`
	JournalAbbrev    string            `json:"journal_abbrev"`
	ISSN             string            `json:"issn"`
	PublicationDate  string            `json:"publication_date"` // YYYY, YYYY-MM or YYYY-MM-DD
	HistoryDate      string            `json:"history_date"`
	Language         string            `json:"language"`
	MedlineStatus    string            `json:"medline_status"`
	PublicationTypes []string          `json:"publication_types"`
	Keywords         []string          `json:"keywords"`
	MeshTerms        []string          `json:"mesh_terms"`
	MeshIDs          []string          `json:"mesh_ids"`
	DataBanks        []DataBank        `json:"data_banks"`
	DOI              string            `json:"doi"`
	Kind             string            `json:"kind"`
}

// AbstractSection is one AbstractText fragment of a structured abstract.
type AbstractSection struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// DataBank is one accession number in a named data bank (GenBank, ClinicalTrials.gov, ...).
type DataBank struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

const (
	KindArticle = "article"
	KindBook    = "book"
)

// FieldWarning records a sub-element that was present but could not be
// parsed. The field is degraded to empty or partial instead.
type FieldWarning struct {
	ID     string `json:"id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ArchiveBatch is the ordered sequence of records derived from one archive.
type ArchiveBatch struct {
	Archive  string
	Records  []Record
	Articles int // article elements encountered
	Skipped  int // article elements without a resolvable identifier
	Deleted  int // PMIDs listed in DeleteCitation blocks
	Warnings []FieldWarning
}

func newRecord(kind string) Record {
	return Record{
		AbstractSections: []AbstractSection{},
		Authors:          []string{},
		PublicationTypes: []string{},
		Keywords:         []string{},
		MeshTerms:        []string{},
		MeshIDs:          []string{},
		DataBanks:        []DataBank{},
		Kind:             kind,
	}
}
