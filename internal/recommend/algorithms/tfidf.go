// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// stopWords is the English stop list removed before n-grams are formed.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all almost alone along already also although always am among amongst
		an and another any anyhow anyone anything anyway anywhere are around as at back be became because become
		becomes becoming been before beforehand behind being below beside besides between beyond both but by can
		cannot could did do does doing done down due during each eg either else elsewhere enough etc even ever
		every everyone everything everywhere except few for former formerly from further had has have having he
		hence her here hereafter hereby herein hers herself him himself his how however i ie if in indeed into is
		it its itself just last latter latterly least less ltd many may me meanwhile might mine more moreover most
		mostly much must my myself namely neither never nevertheless next no nobody none noone nor not nothing now
		nowhere of off often on once one only onto or other others otherwise our ours ourselves out over own per
		perhaps please rather re same seem seemed seeming seems several she should since so some somehow someone
		something sometime sometimes somewhere still such than that the their theirs them themselves then thence
		there thereafter thereby therefore therein thereupon these they this those though through throughout thru
		thus to together too toward towards under until up upon us very via was we well were what whatever when
		whence whenever where whereafter whereas whereby wherein whereupon wherever whether which while whither
		who whoever whole whom whose why will with within without would yet you your yours yourself yourselves
	`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// tfidfOptions bounds the vocabulary.
type tfidfOptions struct {
	maxFeatures int
	minDF       int
	maxDF       float64
}

// tfidfModel is a fitted vectorizer: the vocabulary, its idf weights, and the
// L2-normalized document matrix (documents x terms).
type tfidfModel struct {
	vocabulary []string
	idf        []float64
	matrix     *mat.Dense
}

// analyze lowercases text, drops stop words, and returns unigrams and bigrams
// of the remaining tokens.
func analyze(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := stopWords[t]; !stop {
			tokens = append(tokens, t)
		}
	}
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 1; i < len(tokens); i++ {
		terms = append(terms, tokens[i-1]+" "+tokens[i])
	}
	return terms
}

// fitTFIDF learns a vocabulary from docs and returns their weighted matrix.
//
// Terms are kept when minDF <= df <= maxDF * len(docs), then capped at
// maxFeatures by corpus frequency. Weights use sublinear tf (1 + ln count)
// and smoothed idf (ln((1+n)/(1+df)) + 1). A nil matrix means no term
// survived the bounds.
func fitTFIDF(docs []string, opts tfidfOptions) *tfidfModel {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	corpus := make(map[string]int)

	for d, doc := range docs {
		c := make(map[string]int)
		for _, term := range analyze(doc) {
			c[term]++
			corpus[term]++
		}
		for term := range c {
			df[term]++
		}
		counts[d] = c
	}

	maxDocs := opts.maxDF * float64(len(docs))
	kept := make([]string, 0, len(df))
	for term, n := range df {
		if n >= opts.minDF && float64(n) <= maxDocs {
			kept = append(kept, term)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if corpus[kept[i]] != corpus[kept[j]] {
			return corpus[kept[i]] > corpus[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if opts.maxFeatures > 0 && len(kept) > opts.maxFeatures {
		kept = kept[:opts.maxFeatures]
	}
	sort.Strings(kept)

	model := &tfidfModel{vocabulary: kept}
	if len(kept) == 0 {
		return model
	}

	index := make(map[string]int, len(kept))
	model.idf = make([]float64, len(kept))
	n := float64(len(docs))
	for i, term := range kept {
		index[term] = i
		model.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	model.matrix = mat.NewDense(len(docs), len(kept), nil)
	for d, c := range counts {
		row := model.matrix.RawRowView(d)
		for term, count := range c {
			col, ok := index[term]
			if !ok {
				continue
			}
			row[col] = (1 + math.Log(float64(count))) * model.idf[col]
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return model
}
