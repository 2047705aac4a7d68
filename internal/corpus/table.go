// Package corpus holds the immutable in-memory representation of a corpus's
// per-document style-feature vectors, the CSV loader that produces it, and the
// stratified fold assignment used for cross-validation.
package corpus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/stylobench/pkg/errors"
)

// Document is one text's feature vector plus identifier-derived metadata.
// Genre is the document-id prefix up to the first genre separator; Source is
// the suffix after the source separator (the generating system, e.g. "human2"
// or a model variant).  Documents are immutable once loaded.
type Document struct {
	ID       string
	Genre    string
	Source   string
	Features []float64
}

// IDSchema describes how genre and source are embedded in a document id.
// The reference corpora use ids like "acad_017@human2": genre prefix before
// "_", source suffix after "@".
type IDSchema struct {
	GenreSep  string
	SourceSep string
}

// DefaultIDSchema matches the reference corpora.
func DefaultIDSchema() IDSchema {
	return IDSchema{GenreSep: "_", SourceSep: "@"}
}

// Parse splits a document id into its genre and source components.
func (s IDSchema) Parse(id string) (genre, source string, err error) {
	at := strings.LastIndex(id, s.SourceSep)
	if at <= 0 || at == len(id)-1 {
		return "", "", errors.Newf(errors.ErrCodeCorpusUnreadable,
			"document id %q has no %q-delimited source suffix", id, s.SourceSep)
	}
	source = id[at+1:]
	stem := id[:at]
	if cut := strings.Index(stem, s.GenreSep); cut > 0 {
		genre = stem[:cut]
	} else {
		genre = stem
	}
	return genre, source, nil
}

// Table is one corpus's feature table: a named, immutable collection of
// documents sharing a single feature schema.  Construct with NewTable; the
// accessor slices must be treated as read-only.
type Table struct {
	name         string
	featureNames []string
	docs         []Document
	byID         map[string]int
}

// NewTable builds a Table from pre-parsed documents, validating that every
// document matches the feature schema and that ids are unique within the
// corpus.  The document order is normalised to lexicographic id order so that
// downstream seeded operations are reproducible regardless of input order.
func NewTable(name string, featureNames []string, docs []Document) (*Table, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "corpus name must not be empty")
	}
	if len(featureNames) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "feature schema must not be empty")
	}

	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]int, len(sorted))
	for i, d := range sorted {
		if len(d.Features) != len(featureNames) {
			return nil, errors.Newf(errors.ErrCodeSchemaMismatch,
				"document %q has %d features, schema has %d", d.ID, len(d.Features), len(featureNames))
		}
		if _, dup := byID[d.ID]; dup {
			return nil, errors.New(errors.ErrCodeDuplicateDocumentID, "duplicate document id").
				WithDetail(fmt.Sprintf("corpus=%s id=%s", name, d.ID))
		}
		byID[d.ID] = i
	}

	return &Table{
		name:         name,
		featureNames: featureNames,
		docs:         sorted,
		byID:         byID,
	}, nil
}

// Name returns the corpus name.
func (t *Table) Name() string { return t.name }

// Dim returns the feature dimensionality D.
func (t *Table) Dim() int { return len(t.featureNames) }

// Len returns the number of documents.
func (t *Table) Len() int { return len(t.docs) }

// FeatureNames returns the ordered feature schema.  Read-only.
func (t *Table) FeatureNames() []string { return t.featureNames }

// Documents returns all documents in lexicographic id order.  Read-only.
func (t *Table) Documents() []Document { return t.docs }

// Sources returns the distinct source labels present, sorted.
func (t *Table) Sources() []string {
	seen := make(map[string]struct{})
	for _, d := range t.docs {
		seen[d.Source] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HasSource reports whether any document carries the given source label.
func (t *Table) HasSource(source string) bool {
	for _, d := range t.docs {
		if d.Source == source {
			return true
		}
	}
	return false
}

// SourceSubset returns the documents whose source is in the given set, in
// table order.
func (t *Table) SourceSubset(sources ...string) []Document {
	want := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		want[s] = struct{}{}
	}
	var out []Document
	for _, d := range t.docs {
		if _, ok := want[d.Source]; ok {
			out = append(out, d)
		}
	}
	return out
}

// CheckSchema verifies that two corpora share an identical feature schema:
// same dimensionality, same names, same order.  Cross-corpus evaluation is
// meaningless otherwise, so a mismatch is a configuration error that must
// abort the whole run.
func CheckSchema(a, b *Table) error {
	if a.Dim() != b.Dim() {
		return errors.Newf(errors.ErrCodeSchemaMismatch,
			"corpora %q and %q have different dimensionality (%d vs %d)",
			a.Name(), b.Name(), a.Dim(), b.Dim())
	}
	for i, name := range a.featureNames {
		if b.featureNames[i] != name {
			return errors.Newf(errors.ErrCodeSchemaMismatch,
				"feature column %d differs between %q and %q (%s vs %s)",
				i, a.Name(), b.Name(), name, b.featureNames[i])
		}
	}
	return nil
}
