/*
 * geometry.go, part of scoper.
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

package pdb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Masses returns the atomic masses of the structure. Atoms with
// unknown elements get a mass of 0, so they don't contribute.
func (S *Structure) Masses() []float64 {
	m := make([]float64, len(S.Atoms))
	for i, a := range S.Atoms {
		m[i] = a.Mass
	}
	return m
}

// column returns the dim-th coordinate of all atoms.
func (S *Structure) column(dim int) []float64 {
	c := make([]float64, len(S.Coords))
	for i, v := range S.Coords {
		c[i] = v[dim]
	}
	return c
}

// Center returns the center of the structure, weighted by weights.
// If weights is nil, all atoms weight the same.
func (S *Structure) Center(weights []float64) ([3]float64, error) {
	var c [3]float64
	if len(S.Coords) == 0 {
		return c, fmt.Errorf("pdb/Center: no atoms")
	}
	if weights != nil {
		if len(weights) != len(S.Coords) {
			return c, fmt.Errorf("pdb/Center: %d weights for %d atoms", len(weights), len(S.Coords))
		}
		if floats.Sum(weights) == 0 {
			return c, fmt.Errorf("pdb/Center: weights add up to zero")
		}
	}
	for dim := range 3 {
		c[dim] = stat.Mean(S.column(dim), weights)
	}
	return c, nil
}

// RadiusOfGyration returns the radius of gyration of the structure. If
// massWeighted is true the atomic masses are used as weights.
func RadiusOfGyration(S *Structure, massWeighted bool) (float64, error) {
	var w []float64
	if massWeighted {
		w = S.Masses()
	}
	center, err := S.Center(w)
	if err != nil {
		return 0, fmt.Errorf("pdb/RadiusOfGyration: %w", err)
	}
	sq := make([]float64, len(S.Coords))
	d := make([]float64, 3)
	for i, v := range S.Coords {
		floats.SubTo(d, v[:], center[:])
		sq[i] = floats.Dot(d, d)
	}
	return math.Sqrt(stat.Mean(sq, w)), nil
}
