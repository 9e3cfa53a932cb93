package pubmed

import (
	"strings"

	"github.com/iziplay/pubmed-records/pkg/issn"
)

// Field is a canonical record field name, identical to its serialized key.
type Field string

const (
	FieldID               Field = "id"
	FieldVersion          Field = "version"
	FieldTitle            Field = "title"
	FieldAbstract         Field = "abstract"
	FieldAuthors          Field = "authors"
	FieldJournal          Field = "journal"
	FieldJournalAbbrev    Field = "journal_abbrev"
	FieldISSN             Field = "issn"
	FieldPublicationDate  Field = "publication_date"
	FieldHistoryDate      Field = "history_date"
	FieldLanguage         Field = "language"
	FieldMedlineStatus    Field = "medline_status"
	FieldPublicationTypes Field = "publication_types"
	FieldKeywords         Field = "keywords"
	FieldMeshTerms        Field = "mesh_terms"
	FieldMeshIDs          Field = "mesh_ids"
	FieldDataBanks        Field = "data_banks"
	FieldDOI              Field = "doi"
)

// Table maps each canonical field to the source paths it may be read from,
// in priority order. How multiple matches combine is a property of the field,
// not of the table: scalar fields take the first non-empty path, set fields
// take the ordered union of all paths.
type Table struct {
	Kind  string
	Paths map[Field][]Path
}

func paths(exprs ...string) []Path {
	out := make([]Path, len(exprs))
	for i, e := range exprs {
		out[i] = MustPath(e)
	}
	return out
}

var ArticleTable = Table{
	Kind: KindArticle,
	Paths: map[Field][]Path{
		FieldID:               paths("MedlineCitation/PMID", "PubmedData/ArticleIdList/ArticleId[@IdType=pubmed]"),
		FieldVersion:          paths("MedlineCitation/PMID/@Version"),
		FieldTitle:            paths("MedlineCitation/Article/ArticleTitle", "MedlineCitation/Article/VernacularTitle"),
		FieldAbstract:         paths("MedlineCitation/Article/Abstract/AbstractText"),
		FieldAuthors:          paths("MedlineCitation/Article/AuthorList/Author"),
		FieldJournal:          paths("MedlineCitation/Article/Journal/Title"),
		FieldJournalAbbrev:    paths("MedlineCitation/Article/Journal/ISOAbbreviation", "MedlineCitation/MedlineJournalInfo/MedlineTA"),
		FieldISSN:             paths("MedlineCitation/Article/Journal/ISSN", "MedlineCitation/MedlineJournalInfo/ISSNLinking"),
		FieldPublicationDate:  paths("MedlineCitation/Article/Journal/JournalIssue/PubDate", "MedlineCitation/Article/ArticleDate"),
		FieldHistoryDate:      paths("PubmedData/History/PubMedPubDate"),
		FieldLanguage:         paths("MedlineCitation/Article/Language"),
		FieldMedlineStatus:    paths("MedlineCitation/@Status"),
		FieldPublicationTypes: paths("MedlineCitation/Article/PublicationTypeList/PublicationType"),
		FieldKeywords:         paths("MedlineCitation/KeywordList/Keyword"),
		FieldMeshTerms:        paths("MedlineCitation/MeshHeadingList/MeshHeading/DescriptorName"),
		FieldMeshIDs: paths(
			"MedlineCitation/MeshHeadingList/MeshHeading/DescriptorName/@UI",
			"MedlineCitation/ChemicalList/Chemical/NameOfSubstance/@UI",
		),
		FieldDataBanks: paths("MedlineCitation/Article/DataBankList/DataBank"),
		FieldDOI: paths(
			"PubmedData/ArticleIdList/ArticleId[@IdType=doi]",
			"MedlineCitation/Article/ELocationID[@EIdType=doi]",
		),
	},
}

var BookTable = Table{
	Kind: KindBook,
	Paths: map[Field][]Path{
		FieldID:               paths("BookDocument/PMID", "PubmedBookData/ArticleIdList/ArticleId[@IdType=pubmed]"),
		FieldVersion:          paths("BookDocument/PMID/@Version"),
		FieldTitle:            paths("BookDocument/ArticleTitle", "BookDocument/Book/BookTitle"),
		FieldAbstract:         paths("BookDocument/Abstract/AbstractText"),
		FieldAuthors:          paths("BookDocument/AuthorList/Author"),
		FieldJournal:          paths("BookDocument/Book/Publisher/PublisherName"),
		FieldPublicationDate:  paths("BookDocument/Book/PubDate"),
		FieldHistoryDate:      paths("PubmedBookData/History/PubMedPubDate"),
		FieldLanguage:         paths("BookDocument/Language"),
		FieldPublicationTypes: paths("BookDocument/PublicationType"),
		FieldKeywords:         paths("BookDocument/KeywordList/Keyword"),
		FieldDOI: paths(
			"PubmedBookData/ArticleIdList/ArticleId[@IdType=doi]",
			"BookDocument/ArticleIdList/ArticleId[@IdType=doi]",
		),
	},
}

// First returns the first non-empty value of field.
func (t Table) First(n *Node, field Field) string {
	for _, p := range t.Paths[field] {
		if v := n.Values(p); len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// Set returns the ordered union of all values of field across its paths.
func (t Table) Set(n *Node, field Field) []string {
	out := []string{}
	for _, p := range t.Paths[field] {
		out = appendUnique(out, n.Values(p)...)
	}
	return out
}

// Nodes returns the elements of the first path of field that matches.
func (t Table) Nodes(n *Node, field Field) []*Node {
	for _, p := range t.Paths[field] {
		if m := n.All(p); len(m) > 0 {
			return m
		}
	}
	return nil
}

// Build converts one article element into a Record. ok is false when the
// element has no resolvable identifier; the element is then not a record.
func (t Table) Build(n *Node) (rec Record, warnings []FieldWarning, ok bool) {
	rec = newRecord(t.Kind)
	rec.ID = t.First(n, FieldID)
	if rec.ID == "" {
		return Record{}, nil, false
	}

	warn := func(field Field, value, reason string) {
		warnings = append(warnings, FieldWarning{ID: rec.ID, Field: string(field), Value: value, Reason: reason})
	}

	rec.Version = t.First(n, FieldVersion)
	rec.Title = t.First(n, FieldTitle)
	rec.Journal = t.First(n, FieldJournal)
	rec.JournalAbbrev = t.First(n, FieldJournalAbbrev)
	rec.Language = t.First(n, FieldLanguage)
	rec.MedlineStatus = t.First(n, FieldMedlineStatus)
	rec.DOI = t.First(n, FieldDOI)
	rec.PublicationTypes = t.Set(n, FieldPublicationTypes)
	rec.Keywords = t.Set(n, FieldKeywords)
	rec.MeshTerms = t.Set(n, FieldMeshTerms)
	rec.MeshIDs = t.Set(n, FieldMeshIDs)

	if raw := t.First(n, FieldISSN); raw != "" {
		rec.ISSN = issn.Normalize(raw)
		if rec.ISSN == "" {
			warn(FieldISSN, raw, "invalid ISSN check character or length")
		}
	}

	var fragments []string
	for _, at := range t.Nodes(n, FieldAbstract) {
		text := normalizeText(at.Text)
		if text == "" {
			continue
		}
		label, _ := at.Attr("Label")
		category, _ := at.Attr("NlmCategory")
		rec.AbstractSections = append(rec.AbstractSections, AbstractSection{
			Label:    normalizeText(label),
			Category: strings.ToLower(normalizeText(category)),
			Text:     text,
		})
		fragments = append(fragments, text)
	}
	rec.Abstract = strings.Join(fragments, AbstractSeparator)

	for _, a := range t.Nodes(n, FieldAuthors) {
		if name := authorName(a); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	for _, db := range t.Nodes(n, FieldDataBanks) {
		name := db.ChildText("DataBankName")
		if list := db.Child("AccessionNumberList"); list != nil {
			for _, acc := range list.Children {
				if id := normalizeText(acc.Text); acc.Name == "AccessionNumber" && id != "" {
					rec.DataBanks = append(rec.DataBanks, DataBank{Name: name, ID: id})
				}
			}
		}
	}

	if dates := t.Nodes(n, FieldPublicationDate); len(dates) > 0 {
		date, err := parseDate(dates[0])
		if err != nil {
			warn(FieldPublicationDate, normalizeText(dates[0].Text), err.Error())
		}
		rec.PublicationDate = date
	}

	for _, h := range t.Nodes(n, FieldHistoryDate) {
		date, err := parseDate(h)
		if err != nil {
			warn(FieldHistoryDate, normalizeText(h.Text), err.Error())
		}
		if date != "" && (rec.HistoryDate == "" || date < rec.HistoryDate) {
			rec.HistoryDate = date
		}
	}

	return rec, warnings, true
}

// AbstractSeparator joins the fragments of a structured abstract.
const AbstractSeparator = " "

// authorName renders "LastName Initials", falling back to ForeName when no
// initials are given, or the collective name for group authors.
func authorName(a *Node) string {
	if c := a.ChildText("CollectiveName"); c != "" {
		return c
	}
	last := a.ChildText("LastName")
	if last == "" {
		return ""
	}
	if initials := a.ChildText("Initials"); initials != "" {
		return last + " " + initials
	}
	if fore := a.ChildText("ForeName"); fore != "" {
		return last + " " + fore
	}
	return last
}
