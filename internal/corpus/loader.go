package corpus

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/turtacn/stylobench/pkg/errors"
)

// LoadCSV reads a feature table exported by the extraction pipeline: a header
// row whose first column is the document-id index and whose remaining columns
// are named numeric features, followed by one row per document.  Genre and
// source are derived from the document id via the supplied schema.
func LoadCSV(path, corpusName string, schema IDSchema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusUnreadable, "failed to open feature table").
			WithDetail("path=" + path)
	}
	defer f.Close()

	t, err := ReadCSV(f, corpusName, schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load feature table").
			WithDetail("path=" + path)
	}
	return t, nil
}

// ReadCSV parses feature-table CSV content from r.  Split out from LoadCSV so
// tests can feed in-memory data without touching the filesystem.
func ReadCSV(r io.Reader, corpusName string, schema IDSchema) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated manually for better error messages

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusUnreadable, "failed to read CSV header")
	}
	if len(header) < 2 {
		return nil, errors.New(errors.ErrCodeCorpusUnreadable,
			"CSV must have an id column and at least one feature column")
	}
	featureNames := make([]string, len(header)-1)
	copy(featureNames, header[1:])

	var docs []Document
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCorpusUnreadable, "failed to read CSV row").
				WithDetail("line=" + strconv.Itoa(line))
		}
		if len(row) != len(header) {
			return nil, errors.Newf(errors.ErrCodeCorpusUnreadable,
				"line %d has %d fields, header has %d", line, len(row), len(header))
		}

		id := row[0]
		genre, source, err := schema.Parse(id)
		if err != nil {
			return nil, err
		}

		features := make([]float64, len(row)-1)
		for i, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Newf(errors.ErrCodeCorpusUnreadable,
					"line %d column %q: not a number: %q", line, featureNames[i], cell)
			}
			features[i] = v
		}

		docs = append(docs, Document{ID: id, Genre: genre, Source: source, Features: features})
	}

	if len(docs) == 0 {
		return nil, errors.New(errors.ErrCodeCorpusUnreadable, "feature table contains no documents")
	}
	return NewTable(corpusName, featureNames, docs)
}
