// Package inference computes reverse-inference posteriors: the probability
// that an observation pattern belongs to a concept, given likelihood tables
// (or raw observations) of the concept's in-group and out-group.
//
// All posteriors share the ratio form
//
//	num = evidence_in * prior_in
//	posterior = num / (num + evidence_out * prior_out)
//
// and resolve a zero denominator to exactly 0.
package inference

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/ontoinfer/likelihood"
)

// ErrColumnMismatch is returned when range-mode tables do not share labels.
var ErrColumnMismatch = errors.New("likelihood columns do not match")

// PriorMismatchError is returned when binary tables disagree on their
// threshold column.
type PriorMismatchError struct {
	In  string
	Out string
}

func (e *PriorMismatchError) Error() string {
	return fmt.Sprintf("threshold mismatch: in-group %s, out-group %s", e.In, e.Out)
}

// Priors are the prior probabilities of the in-group and out-group.
type Priors struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
}

// EqualPriors is 0.5/0.5.
var EqualPriors = Priors{In: 0.5, Out: 0.5}

// NewPriors derives priors from group sizes, or returns EqualPriors when
// equal is set or both groups are empty.
func NewPriors(inCount, outCount int, equal bool) Priors {
	total := inCount + outCount
	if equal || total <= 0 {
		return EqualPriors
	}
	return Priors{
		In:  float64(inCount) / float64(total),
		Out: float64(outCount) / float64(total),
	}
}

// Score is the posterior of one likelihood column.
type Score struct {
	Label     string  `json:"label"`
	Posterior float64 `json:"posterior"`
}

func ratio(in, out float64, p Priors) float64 {
	num := in * p.In
	den := num + out*p.Out
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// Compatible checks that in and out can be compared cell by cell.
func Compatible(in, out *likelihood.Table) error {
	if err := in.SameShape(out); err != nil {
		return err
	}
	if in.Mode() != out.Mode() {
		return fmt.Errorf("%w: %s vs %s tables", ErrColumnMismatch, in.Mode(), out.Mode())
	}
	if in.Mode() == likelihood.ModeBinary {
		ti, _ := in.Threshold()
		to, _ := out.Threshold()
		if ti != to {
			return &PriorMismatchError{
				In:  likelihood.ThresholdLabel(ti),
				Out: likelihood.ThresholdLabel(to),
			}
		}
		return nil
	}
	if !slices.Equal(in.Labels(), out.Labels()) {
		return ErrColumnMismatch
	}
	return nil
}

// ThresholdPosterior sums log probabilities over every voxel of each column
// and returns one posterior per column. Binary tables yield a single score.
func ThresholdPosterior(in, out *likelihood.Table, p Priors) ([]Score, error) {
	if err := Compatible(in, out); err != nil {
		return nil, err
	}
	sumIn, sumOut := in.LogSums(), out.LogSums()
	labels := in.Labels()

	scores := make([]Score, len(labels))
	for j, label := range labels {
		scores[j] = Score{Label: label, Posterior: ratio(sumIn[j], sumOut[j], p)}
	}
	return scores, nil
}
