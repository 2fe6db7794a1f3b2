package data

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

var jobs = []string{"admin.", "blue-collar", "management", "retired", "services", "student", "technician"}
var maritals = []string{"married", "single", "divorced"}

func SyntheticHeader() []string {
	h := []string{"", "age", "campaign", "pdays", "previous", "no_previous_contact", "not_working"}
	for _, j := range jobs {
		h = append(h, "job_"+j)
	}
	for _, m := range maritals {
		h = append(h, "marital_"+m)
	}
	return append(h, ColumnNo, ColumnYes)
}

// GenerateSynthetic writes n bank-marketing-shaped rows to outPath. The same
// seed always produces the same file.
func GenerateSynthetic(n int, seed int64, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := WriteSynthetic(f, n, seed); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteSynthetic(out io.Writer, n int, seed int64) error {
	w := csv.NewWriter(out)
	if err := w.Write(SyntheticHeader()); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		age := 18 + rng.Intn(70)
		campaign := 1 + rng.Intn(10)
		noPrev := rng.Float64() < 0.8
		pdays, previous := 999, 0
		if !noPrev {
			pdays = rng.Intn(30)
			previous = 1 + rng.Intn(5)
		}
		job := rng.Intn(len(jobs))
		notWorking := jobs[job] == "retired" || jobs[job] == "student"
		marital := rng.Intn(len(maritals))

		score := 0.05
		if !noPrev {
			score += 0.35
		}
		if notWorking {
			score += 0.2
		}
		if age > 60 {
			score += 0.1
		}
		if campaign > 5 {
			score -= 0.04
		}
		yes := 0
		if rng.Float64() < score {
			yes = 1
		}

		rec := []string{
			strconv.Itoa(i),
			strconv.Itoa(age),
			strconv.Itoa(campaign),
			strconv.Itoa(pdays),
			strconv.Itoa(previous),
			boolDigit(noPrev),
			boolDigit(notWorking),
		}
		for k := range jobs {
			rec = append(rec, boolDigit(k == job))
		}
		for k := range maritals {
			rec = append(rec, boolDigit(k == marital))
		}
		rec = append(rec, strconv.Itoa(1-yes), strconv.Itoa(yes))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
