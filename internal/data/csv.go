package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	ColumnNo  = "y_no"
	ColumnYes = "y_yes"
)

func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a CSV with a header row. The first column is an opaque index,
// y_no and y_yes are located by name and every other column is a numeric
// feature kept in header order.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("csv sem cabeçalho")
	}
	if err != nil {
		return nil, err
	}
	noCol, yesCol := -1, -1
	var featCols []int
	ds := &Dataset{}
	for i, name := range header {
		switch {
		case i == 0:
		case name == ColumnNo:
			noCol = i
		case name == ColumnYes:
			yesCol = i
		default:
			featCols = append(featCols, i)
			ds.Features = append(ds.Features, name)
		}
	}
	if noCol < 0 || yesCol < 0 {
		return nil, fmt.Errorf("csv sem colunas %s/%s", ColumnNo, ColumnYes)
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		rec := Record{Index: row[0], Features: make([]float64, len(featCols))}
		for k, c := range featCols {
			v, err := strconv.ParseFloat(row[c], 64)
			if err != nil {
				return nil, fmt.Errorf("linha %d, coluna %s: %w", line, header[c], err)
			}
			rec.Features[k] = v
		}
		if rec.No, err = parseLabel(row[noCol]); err != nil {
			return nil, fmt.Errorf("linha %d, coluna %s: %w", line, ColumnNo, err)
		}
		if rec.Yes, err = parseLabel(row[yesCol]); err != nil {
			return nil, fmt.Errorf("linha %d, coluna %s: %w", line, ColumnYes, err)
		}
		if rec.No+rec.Yes != 1 {
			return nil, fmt.Errorf("linha %d: exatamente um de %s/%s deve ser 1", line, ColumnNo, ColumnYes)
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func parseLabel(s string) (int, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	return 0, fmt.Errorf("rótulo binário inválido %q", s)
}

// WriteLabelFirst writes records headerless with y_yes as the first column,
// the layout XGBoost-style trainers consume.
func WriteLabelFirst(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		fmt.Fprintf(bw, "%d", r.Yes)
		for _, v := range r.Features {
			fmt.Fprintf(bw, ",%s", formatFloat(v))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func WriteLabelFirstFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLabelFirst(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadLabelFirst(r io.Reader) ([][]float64, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var X [][]float64
	var y []int
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		label, err := parseLabel(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("linha %d: %w", line, err)
		}
		x, err := parseFloats(row[1:])
		if err != nil {
			return nil, nil, fmt.Errorf("linha %d: %w", line, err)
		}
		X = append(X, x)
		y = append(y, label)
	}
	return X, y, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
