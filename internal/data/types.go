package data

// Record is one row of the dataset. Exactly one of No and Yes is 1.
type Record struct {
	Index    string    `json:"index"`
	Features []float64 `json:"features"`
	No       int       `json:"y_no"`
	Yes      int       `json:"y_yes"`
}

// Label is the positive-class label (y_yes).
func (r Record) Label() int { return r.Yes }

type Dataset struct {
	Features []string
	Records  []Record
}

func (d *Dataset) Len() int { return len(d.Records) }

func Matrix(records []Record) [][]float64 {
	X := make([][]float64, len(records))
	for i := range records {
		X[i] = records[i].Features
	}
	return X
}

func Labels(records []Record) []int {
	y := make([]int, len(records))
	for i := range records {
		y[i] = records[i].Yes
	}
	return y
}
