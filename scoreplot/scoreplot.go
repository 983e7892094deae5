/*
 * scoreplot.go, part of scoper.
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

// Package scoreplot draws the scores of a scoper run: the score of every
// candidate against its rank, with the selected candidates highlighted,
// and a histogram of the scores. The format of the file (png, svg, pdf...)
// is taken from its extension.
package scoreplot

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rmera/scoper"
)

// Size of the saved plots.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	lineColor     = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	selectedColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

// RankPlot plots the ranked scores (as returned by scoper.Ranked) against
// their rank, starting from 1, and saves the plot in filename. The first
// topK points are drawn in a different color.
func RankPlot(ranked []scoper.Scored, topK int, title, filename string) error {
	const errid = "scoreplot/RankPlot"
	if len(ranked) == 0 {
		return fmt.Errorf("%s: no scores to plot", errid)
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	if topK < 0 {
		topK = 0
	}
	p := basicPlot(title, "Rank", "Chi")
	all := make(plotter.XYs, len(ranked))
	for i, s := range ranked {
		all[i].X = float64(i + 1)
		all[i].Y = s.Score
	}
	line, points, err := plotter.NewLinePoints(all)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	line.Color = lineColor
	points.GlyphStyle.Color = lineColor
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	if topK > 0 {
		sel, err := plotter.NewScatter(all[:topK])
		if err != nil {
			return fmt.Errorf("%s: %w", errid, err)
		}
		sel.GlyphStyle.Color = selectedColor
		sel.GlyphStyle.Shape = draw.PyramidGlyph{}
		sel.GlyphStyle.Radius = vg.Points(4)
		p.Add(sel)
		p.Legend.Add(fmt.Sprintf("top %d", topK), sel)
	}
	p.X.Min = 0
	p.X.Max = float64(len(ranked) + 1)
	if err := p.Save(Width, Height, filename); err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	return nil
}

// HistogramPlot saves a histogram of values, with the given number of bins.
func HistogramPlot(values []float64, bins int, title, filename string) error {
	const errid = "scoreplot/HistogramPlot"
	if len(values) == 0 {
		return fmt.Errorf("%s: no scores to plot", errid)
	}
	if bins < 1 {
		bins = 1
	}
	p := basicPlot(title, "Chi", "Candidates")
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	h.FillColor = selectedColor
	p.Add(h)
	if err := p.Save(Width, Height, filename); err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	return nil
}

// HistogramName derives the name of the histogram plot from the name of
// the rank plot: ranks.png gives ranks_histo.png.
func HistogramName(rankPlot string) string {
	ext := filepath.Ext(rankPlot)
	return strings.TrimSuffix(rankPlot, ext) + "_histo" + ext
}
