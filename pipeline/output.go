/*
 * output.go, part of scoper.
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

package pipeline

import (
	"fmt"
	"strconv"

	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/report"
	"github.com/rmera/scoper/scoreplot"
)

// writeReport writes the score table and the plots, if they were
// requested. Failures are logged, as the results of the run are still
// valid without them.
func (P *Pipeline) writeReport(rep *Report) {
	if name := P.cfg.Report.Path; name != "" {
		header := map[string]string{
			"run_id":  rep.RunID,
			"profile": rep.Profile,
			"top_k":   strconv.Itoa(P.cfg.TopK),
			"failed":  strconv.Itoa(len(rep.Failed)),
		}
		if P.cfg.Input != "" {
			header["input"] = P.cfg.Input
		}
		if err := report.WriteTable(name, header, report.Rows(rep.Ranked, len(rep.TopK))); err != nil {
			P.log.Error("Could not write the score table", logger.String("file", name), logger.Error(err))
		} else {
			P.log.Info("Wrote score table", logger.String("file", name))
		}
	}
	name := P.cfg.Report.Plot
	if name == "" || len(rep.Ranked) == 0 {
		return
	}
	title := fmt.Sprintf("FoXS scores, run %s", rep.RunID)
	if err := scoreplot.RankPlot(rep.Ranked, len(rep.TopK), title, name); err != nil {
		P.log.Error("Could not plot the scores", logger.String("file", name), logger.Error(err))
	}
	values := make([]float64, len(rep.Ranked))
	for i, s := range rep.Ranked {
		values[i] = s.Score
	}
	hname := scoreplot.HistogramName(name)
	if err := scoreplot.HistogramPlot(values, P.cfg.Report.Bins, title, hname); err != nil {
		P.log.Error("Could not plot the score histogram", logger.String("file", hname), logger.Error(err))
	}
}

// writeJSON writes the whole report, if requested.
func (P *Pipeline) writeJSON(rep *Report) {
	name := P.cfg.Report.JSON
	if name == "" || rep == nil {
		return
	}
	if err := report.WriteJSON(name, rep); err != nil {
		P.log.Error("Could not write the report", logger.String("file", name), logger.Error(err))
	}
}

func (P *Pipeline) writeMetrics() {
	name := P.cfg.Metrics.Textfile
	if name == "" {
		return
	}
	if err := P.metrics.WriteTextfile(name); err != nil {
		P.log.Error("Could not write the metrics", logger.String("file", name), logger.Error(err))
	}
}
