// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"fmt"
	"math"

	"github.com/tomtom215/marquee/internal/recommend"
)

// fallbackUserMean stands in for the mean of a user with no ratings.
const fallbackUserMean = 3.5

// UserRecommendations ranks a user's unrated movies by bias-corrected
// neighborhood prediction with the hidden-gem layer applied.
//
// Candidates whose mean rating falls below the quality floor are skipped.
// High-quality movies rated by a small fraction of users get a bonus when the
// prediction already matches the user's taste, capped at the top of the scale.
// An unknown user or an unfitted similarity matrix yields an empty list.
func (c *Collaborative) UserRecommendations(userID string, n int) []recommend.ScoredMovie {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil || n <= 0 {
		return []recommend.ScoredMovie{}
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		c.logger.Debug().Str("user_id", userID).Msg("User not in trained index")
		return []recommend.ScoredMovie{}
	}

	gem := c.cfg.HiddenGem
	userMean := c.userMean(i)
	totalUsers := float64(c.matrix.Rows())
	movieIDs := c.matrix.MovieIDs()
	scores := make(map[int]float64)

	c.unrated(i, func(j int) {
		pred := c.predict(i, j)

		if gem.Enabled {
			raters := c.matrix.RatedBy(j)
			movieMean := recommend.NeutralRating
			if raters > 0 {
				movieMean = c.matrix.MovieMean(j)
			}
			if movieMean < gem.QualityFloor {
				return
			}
			ratio := float64(raters) / totalUsers
			if movieMean >= gem.MinRating && ratio < gem.ExposureRatio && pred >= userMean {
				pred = math.Min(recommend.MaxRating, pred+(1-ratio)*gem.MaxBonus)
			}
		}

		scores[movieIDs[j]] = pred
	})

	return rankScores(scores, n)
}

// PredictRating returns the neighborhood prediction for one user and movie.
func (c *Collaborative) PredictRating(userID string, movieID int) (float64, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil {
		return 0, ErrNotPrepared
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", recommend.ErrUnknownUser, userID)
	}
	j, ok := c.matrix.MovieIndex(movieID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", recommend.ErrUnknownMovie, movieID)
	}
	return c.predict(i, j), nil
}

// userMean returns user i's mean rating with the cold fallback.
func (c *Collaborative) userMean(i int) float64 {
	if mean := c.matrix.UserMean(i); mean > 0 {
		return mean
	}
	return fallbackUserMean
}

// predict estimates user i's rating of movie j from similar raters.
//
// Each rater's score is de-biased by their own mean and re-centered on the
// target user's mean, then weighted by similarity. Raters at or below the
// similarity floor are ignored. The estimate regresses toward the user's mean
// in proportion to how little similarity mass supports it.
// Must be called with the predict lock held.
func (c *Collaborative) predict(i, j int) float64 {
	m := c.matrix
	if m.RatedBy(j) == 0 {
		return recommend.NeutralRating
	}

	nb := c.cfg.Neighborhood
	userMean := c.userMean(i)
	simRow := c.similarity.RawRowView(i)

	var weighted, simSum float64
	rows := m.Rows()
	for v := 0; v < rows; v++ {
		if v == i {
			continue
		}
		r := m.At(v, j)
		if r == 0 {
			continue
		}
		s := simRow[v]
		if s <= nb.MinSimilarity {
			continue
		}
		weighted += s * (r - m.UserMean(v) + userMean)
		simSum += s
	}

	if simSum == 0 {
		return clampRating(m.MovieMean(j))
	}

	pred := weighted / simSum
	confidence := math.Min(1, simSum/nb.ConfidenceScale)
	pred = confidence*pred + (1-confidence)*userMean
	return clampRating(pred)
}
