package scoring

import (
	"errors"
	"math"

	"github.com/nao1215/telecheck/internal/model"
)

// MaxScore is the score of a category without findings.
const MaxScore = 100

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights are the penalties and aggregation weights used by Score.
type Weights struct {
	Critical int `yaml:"critical" json:"critical" validate:"gte=0"`
	High     int `yaml:"high" json:"high" validate:"gte=0"`
	Medium   int `yaml:"medium" json:"medium" validate:"gte=0"`
	Low      int `yaml:"low" json:"low" validate:"gte=0"`
	Info     int `yaml:"info" json:"info" validate:"gte=0"`

	// Category weights the overall mean. Categories not listed weigh 1.
	Category map[model.Category]float64 `yaml:"category,omitempty" json:"category,omitempty"`
}

// DefaultWeights returns Critical 20, High 10, Medium 5, Low 2, Info 0 and
// equal category weights.
func DefaultWeights() Weights {
	return Weights{
		Critical: 20,
		High:     10,
		Medium:   5,
		Low:      2,
	}
}

// Penalty returns the points a finding of severity s costs.
func (w Weights) Penalty(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return w.Critical
	case model.SeverityHigh:
		return w.High
	case model.SeverityMedium:
		return w.Medium
	case model.SeverityLow:
		return w.Low
	default:
		return w.Info
	}
}

// categoryWeight returns the aggregation weight of c.
func (w Weights) categoryWeight(c model.Category) float64 {
	if v, ok := w.Category[c]; ok {
		return v
	}
	return 1
}

// Validate checks that no penalty or category weight is negative and that
// the category weights do not sum to zero.
func (w Weights) Validate() error {
	for _, p := range []int{w.Critical, w.High, w.Medium, w.Low, w.Info} {
		if p < 0 {
			return ErrInvalidWeights
		}
	}
	var total float64
	for _, c := range model.Categories() {
		cw := w.categoryWeight(c)
		if cw < 0 || math.IsNaN(cw) || math.IsInf(cw, 0) {
			return ErrInvalidWeights
		}
		total += cw
	}
	if total == 0 {
		return ErrInvalidWeights
	}
	for c := range w.Category {
		if !c.Valid() {
			return ErrInvalidWeights
		}
	}
	return nil
}

// Scorer computes scores with fixed weights.
type Scorer struct {
	weights Weights
}

// New returns a scorer using w.
func New(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score returns the overall score and one CategoryScore per category in
// model.Categories order.
func (s *Scorer) Score(findings []model.Finding) (int, []model.CategoryScore) {
	penalty := make(map[model.Category]int, len(model.Categories()))
	count := make(map[model.Category]int, len(model.Categories()))
	for _, f := range findings {
		penalty[f.Category] += s.weights.Penalty(f.Severity)
		count[f.Category]++
	}

	scores := make([]model.CategoryScore, 0, len(model.Categories()))
	var sum, totalWeight float64
	for _, c := range model.Categories() {
		score := max(MaxScore-penalty[c], 0)
		scores = append(scores, model.CategoryScore{
			Category: c,
			Score:    score,
			Findings: count[c],
		})
		w := s.weights.categoryWeight(c)
		sum += float64(score) * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return MaxScore, scores
	}
	return int(math.Round(sum / totalWeight)), scores
}

// Score scores findings with DefaultWeights.
func Score(findings []model.Finding) (int, []model.CategoryScore) {
	return New(DefaultWeights()).Score(findings)
}
