package data

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `,age,campaign,y_no,y_yes
0,56,1,1,0
1,41,3,0,1
2,23,2,1,0
`

func TestReadLocatesLabelsByName(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, []string{"age", "campaign"}, ds.Features)
	require.Equal(t, 3, ds.Len())
	require.Equal(t, Record{Index: "1", Features: []float64{41, 3}, No: 0, Yes: 1}, ds.Records[1])
	require.Equal(t, []int{0, 1, 0}, Labels(ds.Records))
	require.Equal(t, []float64{23, 2}, Matrix(ds.Records)[2])
}

func TestReadRejectsBrokenLabels(t *testing.T) {
	_, err := Read(strings.NewReader(",age,y_no,y_yes\n0,30,1,1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "linha 2")

	_, err = Read(strings.NewReader(",age,y_no,y_yes\n0,30,2,0\n"))
	require.Error(t, err)

	_, err = Read(strings.NewReader(",age,y_no\n0,30,1\n"))
	require.Error(t, err)

	_, err = Read(strings.NewReader(",age,y_no,y_yes\n0,old,1,0\n"))
	require.Error(t, err)
}

func TestWriteLabelFirst(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLabelFirst(&buf, ds.Records))
	require.Equal(t, "0,56,1\n1,41,3\n0,23,2\n", buf.String())

	X, y, err := ReadLabelFirst(&buf)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 0}, y)
	require.Equal(t, []float64{41, 3}, X[1])
}

func TestDecodeScoresAcceptsMixedSeparators(t *testing.T) {
	ps, err := DecodeScores([]byte("0.1,0.9\n0.5\r\n"))
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.9, 0.5}, ps)

	_, err = DecodeScores([]byte("0.1,abc"))
	require.Error(t, err)

	ps, err = DecodeScores(EncodeScores([]float64{0.25, 1}))
	require.NoError(t, err)
	require.Equal(t, []float64{0.25, 1}, ps)
}

func TestDecodeRows(t *testing.T) {
	rows, err := DecodeRows(EncodeRows([][]float64{{1, 2.5}, {3, 4}}))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2.5}, {3, 4}}, rows)
}

func TestGenerateSyntheticIsReproducible(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, GenerateSynthetic(1000, 7, a))
	require.NoError(t, GenerateSynthetic(1000, 7, b))

	da, err := Load(a)
	require.NoError(t, err)
	db, err := Load(b)
	require.NoError(t, err)
	require.Equal(t, 1000, da.Len())
	require.Equal(t, da.Records, db.Records)
	require.Len(t, da.Features, len(SyntheticHeader())-3)
}
