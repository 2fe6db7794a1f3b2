package data

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

const ContentTypeCSV = "text/csv"

func EncodeRows(rows [][]float64) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(formatFloat(v))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func DecodeRows(body []byte) ([][]float64, error) {
	cr := csv.NewReader(bytes.NewReader(body))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		x, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("linha %d: %w", i+1, err)
		}
		rows = append(rows, x)
	}
	return rows, nil
}

func EncodeScores(ps []float64) []byte {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = formatFloat(p)
	}
	return []byte(strings.Join(parts, ","))
}

// DecodeScores accepts probabilities separated by commas, newlines or both.
func DecodeScores(body []byte) ([]float64, error) {
	fields := strings.FieldsFunc(string(body), func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("predição %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
