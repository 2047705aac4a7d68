package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stylobench/pkg/errors"
)

const sampleCSV = `doc_id,past_tense_rate,mean_word_len
acad_001@human2,0.12,4.7
acad_002@modelX,0.31,4.1
news_001@human2,0.08,5.2
`

func TestReadCSV_ParsesDocuments(t *testing.T) {
	t.Parallel()
	tab, err := ReadCSV(strings.NewReader(sampleCSV), "A", DefaultIDSchema())
	require.NoError(t, err)

	assert.Equal(t, "A", tab.Name())
	assert.Equal(t, []string{"past_tense_rate", "mean_word_len"}, tab.FeatureNames())
	assert.Equal(t, 3, tab.Len())

	first := tab.Documents()[0]
	assert.Equal(t, "acad_001@human2", first.ID)
	assert.Equal(t, "acad", first.Genre)
	assert.Equal(t, "human2", first.Source)
	assert.Equal(t, []float64{0.12, 4.7}, first.Features)
}

func TestReadCSV_RejectsNonNumericCell(t *testing.T) {
	t.Parallel()
	csv := "doc_id,f1\nacad_001@human2,not-a-number\n"
	_, err := ReadCSV(strings.NewReader(csv), "A", DefaultIDSchema())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusUnreadable))
	assert.Contains(t, err.Error(), "f1")
}

func TestReadCSV_RejectsRaggedRow(t *testing.T) {
	t.Parallel()
	csv := "doc_id,f1,f2\nacad_001@human2,0.5\n"
	_, err := ReadCSV(strings.NewReader(csv), "A", DefaultIDSchema())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusUnreadable))
}

func TestReadCSV_RejectsHeaderWithoutFeatures(t *testing.T) {
	t.Parallel()
	_, err := ReadCSV(strings.NewReader("doc_id\nacad_001@human2\n"), "A", DefaultIDSchema())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusUnreadable))
}

func TestReadCSV_RejectsEmptyBody(t *testing.T) {
	t.Parallel()
	_, err := ReadCSV(strings.NewReader("doc_id,f1\n"), "A", DefaultIDSchema())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusUnreadable))
}

func TestLoadCSV_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadCSV("/nonexistent/table.csv", "A", DefaultIDSchema())
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusUnreadable))
}
