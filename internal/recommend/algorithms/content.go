// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// ErrNoTextFeatures is returned when a TF-IDF-only similarity is requested
// but no term survived the vocabulary bounds.
var ErrNoTextFeatures = errors.New("no text features")

// metadataFeatures is the width of the numeric metadata block.
const metadataFeatures = 8

// Content is the content-based filtering engine.
//
// It builds three feature spaces per movie: TF-IDF over the overview text,
// one-hot genre membership, and standardized numeric metadata. The combined
// similarity is the cosine over the weighted concatenation of all three:
//
//	x = [ w_text * tfidf | w_genre * genres | w_meta * metadata ]
//
// Similarity rows and columns follow the sorted movie id list.
type Content struct {
	BaseAlgorithm
	cfg    recommend.ContentConfig
	logger zerolog.Logger

	movies   []recommend.Movie
	movieIDs []int
	index    map[int]int

	tfidf    *tfidfModel
	genres   []string
	genre    *mat.Dense
	metadata *mat.Dense
	combined bool

	similarity *mat.Dense
}

// NewContent creates an unfitted content engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewContent(cfg *recommend.Config, logger zerolog.Logger) *Content {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	return &Content{
		BaseAlgorithm: NewBaseAlgorithm("content"),
		cfg:           cfg.Content,
		logger:        logger.With().Str("component", "content").Logger(),
	}
}

// Prepare indexes the catalog by ascending movie id. Feature spaces from a
// previous fit are discarded.
func (c *Content) Prepare(movies []recommend.Movie) error {
	if len(movies) == 0 {
		return fmt.Errorf("prepare content: %w", recommend.ErrNoMovies)
	}

	sorted := make([]recommend.Movie, 0, len(movies))
	seen := make(map[int]struct{}, len(movies))
	// Later records for the same id replace earlier ones
	for i := len(movies) - 1; i >= 0; i-- {
		if _, dup := seen[movies[i].ID]; dup {
			continue
		}
		seen[movies[i].ID] = struct{}{}
		sorted = append(sorted, movies[i])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.movies = sorted
	c.movieIDs = make([]int, len(sorted))
	c.index = make(map[int]int, len(sorted))
	for i := range sorted {
		c.movieIDs[i] = sorted[i].ID
		c.index[sorted[i].ID] = i
	}
	c.tfidf = nil
	c.genres = nil
	c.genre = nil
	c.metadata = nil
	c.similarity = nil

	c.logger.Info().Int("movies", len(sorted)).Msg("Content catalog prepared")
	return nil
}

// Fit builds every feature space and the similarity matrix.
func (c *Content) Fit(combined bool) error {
	if err := c.BuildTFIDF(); err != nil {
		return err
	}
	if err := c.BuildGenres(); err != nil {
		return err
	}
	if err := c.BuildMetadata(); err != nil {
		return err
	}
	return c.ComputeSimilarity(combined)
}

// BuildTFIDF vectorizes the movie overviews. An empty vocabulary leaves the
// text block empty and is not an error.
func (c *Content) BuildTFIDF() error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.movies == nil {
		return ErrNotPrepared
	}

	docs := make([]string, len(c.movies))
	for i := range c.movies {
		docs[i] = c.movies[i].Overview
	}
	c.tfidf = fitTFIDF(docs, tfidfOptions{
		maxFeatures: c.cfg.MaxFeatures,
		minDF:       c.cfg.MinDF,
		maxDF:       c.cfg.MaxDF,
	})

	if c.tfidf.matrix == nil {
		c.logger.Warn().Int("movies", len(docs)).Msg("TF-IDF vocabulary is empty, text features disabled")
		return nil
	}
	c.logger.Info().
		Int("movies", len(docs)).
		Int("terms", len(c.tfidf.vocabulary)).
		Msg("TF-IDF features built")
	return nil
}

// BuildGenres one-hot encodes genre membership over the sorted genre vocabulary.
func (c *Content) BuildGenres() error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.movies == nil {
		return ErrNotPrepared
	}

	vocab := make(map[string]struct{})
	for i := range c.movies {
		for _, g := range c.movies[i].Genres {
			if g != "" {
				vocab[g] = struct{}{}
			}
		}
	}
	c.genres = make([]string, 0, len(vocab))
	for g := range vocab {
		c.genres = append(c.genres, g)
	}
	sort.Strings(c.genres)

	if len(c.genres) == 0 {
		c.genre = nil
		c.logger.Warn().Msg("No genres in catalog, genre features disabled")
		return nil
	}

	col := make(map[string]int, len(c.genres))
	for j, g := range c.genres {
		col[g] = j
	}
	c.genre = mat.NewDense(len(c.movies), len(c.genres), nil)
	for i := range c.movies {
		for _, g := range c.movies[i].Genres {
			if j, ok := col[g]; ok {
				c.genre.Set(i, j, 1)
			}
		}
	}

	c.logger.Info().Int("genres", len(c.genres)).Msg("Genre features built")
	return nil
}

// BuildMetadata builds the standardized numeric metadata block.
func (c *Content) BuildMetadata() error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.movies == nil {
		return ErrNotPrepared
	}

	rows := len(c.movies)
	c.metadata = mat.NewDense(rows, metadataFeatures, nil)
	for i := range c.movies {
		m := &c.movies[i]
		var ratio float64
		if m.Budget > 0 {
			ratio = m.Revenue / m.Budget
		}
		row := c.metadata.RawRowView(i)
		row[0] = m.Popularity
		row[1] = m.VoteAverage
		row[2] = math.Log1p(float64(max(m.VoteCount, 0)))
		row[3] = float64(m.Runtime)
		row[4] = float64(m.Year())
		row[5] = ratio
		row[6] = m.DirectorScore
		row[7] = m.ActorScore
		for j := range row {
			row[j] = finiteOrZero(row[j])
		}
	}

	column := make([]float64, rows)
	for j := 0; j < metadataFeatures; j++ {
		mat.Col(column, j, c.metadata)
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := 0; i < rows; i++ {
			c.metadata.Set(i, j, (column[i]-mean)/std)
		}
	}

	c.logger.Info().Int("features", metadataFeatures).Msg("Metadata features built")
	return nil
}

// ComputeSimilarity builds the movie x movie similarity matrix.
//
// When combined is true the cosine is taken over the weighted concatenation of
// every feature block that was built. Otherwise a linear kernel over the
// L2-normalized TF-IDF rows is used. The diagonal is always 1.
func (c *Content) ComputeSimilarity(combined bool) error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.movies == nil {
		return ErrNotPrepared
	}

	start := time.Now()
	var sim *mat.Dense
	if combined {
		sim = c.combinedCosine()
	} else {
		if c.tfidf == nil || c.tfidf.matrix == nil {
			return ErrNoTextFeatures
		}
		sim = linearKernel(c.tfidf.matrix)
	}

	c.similarity = sim
	c.combined = combined
	c.markTrained()

	c.logger.Info().
		Int("movies", len(c.movies)).
		Bool("combined", combined).
		Dur("duration", time.Since(start)).
		Msg("Content similarity computed")
	return nil
}

// combinedCosine accumulates the Gram matrix of the weighted concatenation
// block by block, then normalizes by the row norms it implies.
// Must be called with the train lock held.
func (c *Content) combinedCosine() *mat.Dense {
	n := len(c.movies)
	gram := mat.NewDense(n, n, nil)

	addBlock := func(block *mat.Dense, weight float64) {
		if block == nil || weight == 0 {
			return
		}
		var g mat.Dense
		g.Mul(block, block.T())
		g.Scale(weight*weight, &g)
		gram.Add(gram, &g)
	}
	if c.tfidf != nil {
		addBlock(c.tfidf.matrix, c.cfg.TextWeight)
	}
	addBlock(c.genre, c.cfg.GenreWeight)
	addBlock(c.metadata, c.cfg.MetadataWeight)

	norms := make([]float64, n)
	for i := range norms {
		norms[i] = math.Sqrt(math.Max(0, gram.At(i, i)))
	}
	for i := 0; i < n; i++ {
		row := gram.RawRowView(i)
		for j := range row {
			if norms[i] == 0 || norms[j] == 0 {
				row[j] = 0
				continue
			}
			row[j] = math.Max(-1, math.Min(1, row[j]/(norms[i]*norms[j])))
		}
		row[i] = 1
	}
	return gram
}

// linearKernel returns x xᵀ with a unit diagonal.
func linearKernel(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	sim := mat.NewDense(rows, rows, nil)
	sim.Mul(x, x.T())
	for i := 0; i < rows; i++ {
		sim.Set(i, i, 1)
	}
	return sim
}

// Similar returns up to n other movies ranked by descending similarity.
// An unknown movie or an unfitted model yields an empty list.
func (c *Content) Similar(movieID, n int) []recommend.ScoredMovie {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil || n <= 0 {
		return []recommend.ScoredMovie{}
	}
	i, ok := c.index[movieID]
	if !ok {
		return []recommend.ScoredMovie{}
	}

	row := c.similarity.RawRowView(i)
	scores := make(map[int]float64, len(row))
	for j, s := range row {
		if j == i {
			continue
		}
		scores[c.movieIDs[j]] = s
	}
	return rankScores(scores, n)
}

// RecommendForUser ranks movies by their mean similarity to the liked movies.
//
// Similarity from every known liked movie is summed per candidate and divided
// by len(liked). Liked movies are never returned. No known liked movie yields
// an empty list.
func (c *Content) RecommendForUser(liked []int, n int) []recommend.ScoredMovie {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil || n <= 0 || len(liked) == 0 {
		return []recommend.ScoredMovie{}
	}

	exclude := make(map[int]struct{}, len(liked))
	sums := make([]float64, len(c.movieIDs))
	var known int
	for _, id := range liked {
		exclude[id] = struct{}{}
		i, ok := c.index[id]
		if !ok {
			continue
		}
		known++
		for j, s := range c.similarity.RawRowView(i) {
			sums[j] += s
		}
	}
	if known == 0 {
		return []recommend.ScoredMovie{}
	}

	scores := make(map[int]float64, len(sums))
	for j, s := range sums {
		id := c.movieIDs[j]
		if _, skip := exclude[id]; skip {
			continue
		}
		scores[id] = s / float64(len(liked))
	}
	return rankScores(scores, n)
}

// Similarity returns the similarity of two movies and whether both are known.
func (c *Content) Similarity(a, b int) (float64, bool) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil {
		return 0, false
	}
	i, ok := c.index[a]
	if !ok {
		return 0, false
	}
	j, ok := c.index[b]
	if !ok {
		return 0, false
	}
	return c.similarity.At(i, j), true
}

// Movie returns the catalog record for id.
func (c *Content) Movie(id int) (recommend.Movie, bool) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	i, ok := c.index[id]
	if !ok {
		return recommend.Movie{}, false
	}
	return c.movies[i], true
}

// MovieIDs returns the catalog ids in similarity order.
func (c *Content) MovieIDs() []int {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.movieIDs
}

// Vocabulary returns the TF-IDF terms, empty when no text features were built.
func (c *Content) Vocabulary() []string {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	if c.tfidf == nil {
		return nil
	}
	return c.tfidf.vocabulary
}

// ContentSchemaVersion identifies the layout of ContentState.
const ContentSchemaVersion = 1

// ContentState is the persisted form of a fitted Content engine. The
// similarity matrix is derived and recomputed on restore.
type ContentState struct {
	SchemaVersion int
	Version       int
	TrainedAt     time.Time
	Combined      bool

	Movies []recommend.Movie

	Vocabulary []string
	IDF        []float64
	TFIDF      []float64

	Genres      []string
	GenreOneHot []float64

	Metadata []float64
}

// Validate checks that every feature block matches the catalog length.
func (s *ContentState) Validate() error {
	if s.SchemaVersion != ContentSchemaVersion {
		return fmt.Errorf("content schema version %d, want %d", s.SchemaVersion, ContentSchemaVersion)
	}
	n := len(s.Movies)
	if n == 0 {
		return errors.New("content state has empty catalog")
	}
	for i := 1; i < n; i++ {
		if s.Movies[i-1].ID >= s.Movies[i].ID {
			return fmt.Errorf("content movies not strictly sorted at %d", i)
		}
	}
	if len(s.IDF) != len(s.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary %d", len(s.IDF), len(s.Vocabulary))
	}
	if len(s.TFIDF) != n*len(s.Vocabulary) {
		return fmt.Errorf("tfidf length %d does not match %d x %d", len(s.TFIDF), n, len(s.Vocabulary))
	}
	if len(s.GenreOneHot) != n*len(s.Genres) {
		return fmt.Errorf("genre length %d does not match %d x %d", len(s.GenreOneHot), n, len(s.Genres))
	}
	if len(s.Metadata) != 0 && len(s.Metadata) != n*metadataFeatures {
		return fmt.Errorf("metadata length %d does not match %d x %d", len(s.Metadata), n, metadataFeatures)
	}
	if !s.Combined && len(s.Vocabulary) == 0 {
		return ErrNoTextFeatures
	}
	return nil
}

// Snapshot captures the fitted feature spaces for persistence.
func (c *Content) Snapshot() (*ContentState, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil {
		return nil, ErrNotPrepared
	}
	s := &ContentState{
		SchemaVersion: ContentSchemaVersion,
		Version:       c.version,
		TrainedAt:     c.lastTrainedAt,
		Combined:      c.combined,
		Movies:        append([]recommend.Movie(nil), c.movies...),
		Genres:        append([]string(nil), c.genres...),
	}
	if c.metadata != nil {
		s.Metadata = rawCopy(c.metadata)
	}
	if c.tfidf != nil && c.tfidf.matrix != nil {
		s.Vocabulary = append([]string(nil), c.tfidf.vocabulary...)
		s.IDF = append([]float64(nil), c.tfidf.idf...)
		s.TFIDF = rawCopy(c.tfidf.matrix)
	}
	if c.genre != nil {
		s.GenreOneHot = rawCopy(c.genre)
	}
	return s, nil
}

// RestoreContent rebuilds a fitted content engine from persisted state.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func RestoreContent(state *ContentState, cfg *recommend.Config, logger zerolog.Logger) (*Content, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}

	c := NewContent(cfg, logger)
	if err := c.Prepare(state.Movies); err != nil {
		return nil, err
	}

	c.acquireTrainLock()
	n := len(state.Movies)
	c.tfidf = &tfidfModel{vocabulary: append([]string(nil), state.Vocabulary...)}
	if len(state.Vocabulary) > 0 {
		c.tfidf.idf = append([]float64(nil), state.IDF...)
		c.tfidf.matrix = mat.NewDense(n, len(state.Vocabulary), append([]float64(nil), state.TFIDF...))
	}
	c.genres = append([]string(nil), state.Genres...)
	if len(state.Genres) > 0 {
		c.genre = mat.NewDense(n, len(state.Genres), append([]float64(nil), state.GenreOneHot...))
	}
	if len(state.Metadata) > 0 {
		c.metadata = mat.NewDense(n, metadataFeatures, append([]float64(nil), state.Metadata...))
	}
	c.releaseTrainLock()

	if err := c.ComputeSimilarity(state.Combined); err != nil {
		return nil, err
	}

	c.acquireTrainLock()
	c.restoreTrained(state.Version, state.TrainedAt)
	c.releaseTrainLock()
	return c, nil
}
