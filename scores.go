/*
 * scores.go, part of scoper.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package scoper

import "sort"

// Scored is a candidate structure together with its fit score.
// Lower scores are better fits.
type Scored struct {
	Name  string  `json:"name"`  //identity of the candidate, the file's base name
	Path  string  `json:"path"`  //where the structure file is
	Score float64 `json:"score"` //chi-style fit statistic
	Index int     `json:"index"` //insertion order in the ScoreMap
}

// Failure records a candidate that was left out, and why.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ScoreMap maps candidate names to their scores, remembering the order in which
// candidates were first inserted. That order breaks ties in TopK.
// The zero value is not usable, use NewScoreMap.
type ScoreMap struct {
	order  []string
	scores map[string]Scored
}

// NewScoreMap returns an empty ScoreMap.
func NewScoreMap() *ScoreMap {
	return &ScoreMap{order: make([]string, 0, 16), scores: make(map[string]Scored)}
}

// Set puts the score for name in the map. If name was already
// present, its score and path are replaced but it keeps its original position.
func (S *ScoreMap) Set(name, path string, score float64) {
	if prev, ok := S.scores[name]; ok {
		prev.Score = score
		prev.Path = path
		S.scores[name] = prev
		return
	}
	S.scores[name] = Scored{Name: name, Path: path, Score: score, Index: len(S.order)}
	S.order = append(S.order, name)
}

// Get returns the score for name, and whether name is in the map.
func (S *ScoreMap) Get(name string) (float64, bool) {
	s, ok := S.scores[name]
	return s.Score, ok
}

// Len returns the number of scored candidates.
func (S *ScoreMap) Len() int {
	if S == nil {
		return 0
	}
	return len(S.order)
}

// Entries returns a copy of the map contents in insertion order.
func (S *ScoreMap) Entries() []Scored {
	if S == nil {
		return nil
	}
	ret := make([]Scored, 0, len(S.order))
	for _, name := range S.order {
		ret = append(ret, S.scores[name])
	}
	return ret
}

// byScore implements sort.Interface so candidates can be ordered by score.
// Used with sort.Stable, insertion order is kept among equal scores.
type byScore []Scored

func (B byScore) Len() int           { return len(B) }
func (B byScore) Less(i, j int) bool { return B[i].Score < B[j].Score }
func (B byScore) Swap(i, j int)      { B[i], B[j] = B[j], B[i] }

// Ranked returns all the entries of S, sorted by ascending score.
// Ties keep the insertion order.
func Ranked(S *ScoreMap) []Scored {
	ret := S.Entries()
	sort.Stable(byScore(ret))
	return ret
}

// TopK returns the k best (lowest) scoring candidates, best first.
// If k is larger than the number of candidates, all of them are returned.
// k <= 0 gives an empty, non-nil slice.
func TopK(S *ScoreMap, k int) []Scored {
	if k <= 0 {
		return []Scored{}
	}
	ranked := Ranked(S)
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
