// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package evaluation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SignificanceLevel is the p-value threshold for TTestResult.Significant.
const SignificanceLevel = 0.05

// ErrSampleMismatch is returned when paired samples differ in length or are too short.
var ErrSampleMismatch = errors.New("paired samples must have equal length of at least 2")

// TTestResult is the outcome of a paired two-sided t-test.
type TTestResult struct {
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	DF          float64 `json:"df"`
	Significant bool    `json:"significant"`
}

// PairedTTest compares two metric samples measured on the same folds or users.
// Identical samples yield statistic 0 and p-value 1.
func PairedTTest(a, b []float64) (TTestResult, error) {
	if len(a) != len(b) || len(a) < 2 {
		return TTestResult{}, ErrSampleMismatch
	}

	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	mean, sd := stat.MeanStdDev(diffs, nil)
	df := float64(len(diffs) - 1)

	if sd == 0 {
		if mean == 0 {
			return TTestResult{Statistic: 0, PValue: 1, DF: df}, nil
		}
		return TTestResult{Statistic: math.Copysign(math.Inf(1), mean), PValue: 0, DF: df, Significant: true}, nil
	}

	t := mean / (sd / math.Sqrt(float64(len(diffs))))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))

	return TTestResult{
		Statistic:   t,
		PValue:      p,
		DF:          df,
		Significant: p < SignificanceLevel,
	}, nil
}
