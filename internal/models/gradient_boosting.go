package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"xgbdeploy/internal/config"
)

type gbNode struct {
	Feature   int
	Threshold float64
	Left      *gbNode
	Right     *gbNode
	IsLeaf    bool
	Value     float64
}

// GradientBoosting fits depth-limited regression trees to the gradient and
// hessian of the logistic loss (the binary:logistic objective).
type GradientBoosting struct {
	NEstimators        int
	LearningRate       float64
	MaxDepth           int
	Gamma              float64
	MinChildWeight     float64
	Subsample          float64
	Lambda             float64
	MaxThresholdsPerFe int
	Seed               int64
	NFeatures          int
	BaseScore          float64
	Trees              []*gbNode
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:        50,
		LearningRate:       0.1,
		MaxDepth:           3,
		MinChildWeight:     1,
		Subsample:          1,
		Lambda:             1,
		MaxThresholdsPerFe: 32,
	}
}

func NewGradientBoostingFrom(hp config.Hyperparameters, seed int64) *GradientBoosting {
	gb := NewGradientBoosting()
	gb.NEstimators = hp.NumRound
	gb.LearningRate = hp.Eta
	gb.MaxDepth = hp.MaxDepth
	gb.Gamma = hp.Gamma
	gb.MinChildWeight = hp.MinChildWeight
	gb.Subsample = hp.Subsample
	gb.Seed = seed
	return gb
}

func (gb *GradientBoosting) Name() string { return "GradientBoosting" }

func sigmoid(z float64) float64 { return 1.0 / (1.0 + math.Exp(-z)) }

type gbFit struct {
	gb   *GradientBoosting
	bins [][]int
	cand [][]float64
	g, h []float64
}

func (gb *GradientBoosting) Fit(X [][]float64, y []int) error {
	n := len(X)
	if n == 0 {
		return errors.New("dataset de treino vazio")
	}
	if len(y) != n {
		return fmt.Errorf("X e y com tamanhos diferentes: %d != %d", n, len(y))
	}
	gb.NFeatures = len(X[0])
	gb.Trees = nil

	pos := 0
	for i := 0; i < n; i++ {
		if y[i] == 1 {
			pos++
		}
	}
	base := float64(pos) / float64(n)
	if base <= 1e-3 {
		base = 1e-3
	}
	if base >= 1-1e-3 {
		base = 1 - 1e-3
	}
	gb.BaseScore = math.Log(base / (1.0 - base))
	F := make([]float64, n)
	for i := range F {
		F[i] = gb.BaseScore
	}

	for i := range X {
		if len(X[i]) != gb.NFeatures {
			return fmt.Errorf("linha %d com %d features, esperado %d", i, len(X[i]), gb.NFeatures)
		}
	}
	fit := &gbFit{gb: gb, g: make([]float64, n), h: make([]float64, n)}
	fit.cand = make([][]float64, gb.NFeatures)
	for j := range fit.cand {
		fit.cand[j] = gbCandidateThresholds(X, j, gb.MaxThresholdsPerFe)
	}
	fit.bins = make([][]int, n)
	for i := range X {
		fit.bins[i] = make([]int, gb.NFeatures)
		for j := range X[i] {
			fit.bins[i][j] = sort.SearchFloat64s(fit.cand[j], X[i][j])
		}
	}

	rng := rand.New(rand.NewSource(gb.Seed))
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	for m := 0; m < gb.NEstimators; m++ {
		for i := 0; i < n; i++ {
			p := sigmoid(F[i])
			fit.g[i] = p - float64(y[i])
			fit.h[i] = p * (1 - p)
		}
		idx := all
		if gb.Subsample > 0 && gb.Subsample < 1 {
			idx = make([]int, 0, int(float64(n)*gb.Subsample)+1)
			for i := 0; i < n; i++ {
				if rng.Float64() < gb.Subsample {
					idx = append(idx, i)
				}
			}
			if len(idx) == 0 {
				idx = all
			}
		}
		tree := fit.build(idx, 0)
		gb.Trees = append(gb.Trees, tree)
		for i := 0; i < n; i++ {
			F[i] += gb.LearningRate * tree.eval(X[i])
		}
	}
	return nil
}

func (f *gbFit) leafValue(G, H float64) float64 {
	return -G / (H + f.gb.Lambda)
}

func (f *gbFit) build(idx []int, depth int) *gbNode {
	var G, H float64
	for _, i := range idx {
		G += f.g[i]
		H += f.h[i]
	}
	leaf := &gbNode{IsLeaf: true, Value: f.leafValue(G, H)}
	if depth >= f.gb.MaxDepth || len(idx) < 2 {
		return leaf
	}

	lambda := f.gb.Lambda
	parent := G * G / (H + lambda)
	bestGain := 0.0
	bestFeature, bestBin := -1, -1
	for j, cand := range f.cand {
		k := len(cand)
		if k == 0 {
			continue
		}
		gs := make([]float64, k+1)
		hs := make([]float64, k+1)
		for _, i := range idx {
			b := f.bins[i][j]
			gs[b] += f.g[i]
			hs[b] += f.h[i]
		}
		var GL, HL float64
		for b := 0; b < k; b++ {
			GL += gs[b]
			HL += hs[b]
			GR, HR := G-GL, H-HL
			if HL < f.gb.MinChildWeight || HR < f.gb.MinChildWeight {
				continue
			}
			gain := 0.5*(GL*GL/(HL+lambda)+GR*GR/(HR+lambda)-parent) - f.gb.Gamma
			if gain > bestGain {
				bestGain = gain
				bestFeature, bestBin = j, b
			}
		}
	}
	if bestFeature == -1 {
		return leaf
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if f.bins[i][bestFeature] <= bestBin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &gbNode{
		Feature:   bestFeature,
		Threshold: f.cand[bestFeature][bestBin],
		Left:      f.build(left, depth+1),
		Right:     f.build(right, depth+1),
	}
}

func (n *gbNode) eval(x []float64) float64 {
	for !n.IsLeaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func (gb *GradientBoosting) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range X {
		if len(X[i]) != gb.NFeatures {
			return nil, fmt.Errorf("linha %d com %d features, modelo espera %d", i, len(X[i]), gb.NFeatures)
		}
		f := gb.BaseScore
		for _, t := range gb.Trees {
			f += gb.LearningRate * t.eval(X[i])
		}
		out[i] = sigmoid(f)
	}
	return out, nil
}

func gbCandidateThresholds(X [][]float64, j int, nCand int) []float64 {
	if nCand <= 0 {
		nCand = 16
	}
	n := len(X)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = X[i][j]
	}
	sort.Float64s(vals)
	out := make([]float64, 0, nCand)
	for k := 1; k < nCand; k++ {
		idx := int(math.Round(float64(k) / float64(nCand) * float64(n-1)))
		if idx < 0 || idx >= n-1 {
			continue
		}
		thr := vals[idx]
		if thr == vals[n-1] {
			continue
		}
		if len(out) == 0 || thr != out[len(out)-1] {
			out = append(out, thr)
		}
	}
	return out
}
