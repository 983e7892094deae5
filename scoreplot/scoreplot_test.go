package scoreplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/scoper"
)

func ranked() []scoper.Scored {
	S := scoper.NewScoreMap()
	for i, v := range []float64{2.1, 0.5, 3.3, 0.5, 1.0} {
		S.Set(string(rune('a'+i)), "", v)
	}
	return scoper.Ranked(S)
}

func TestRankPlot(Te *testing.T) {
	dir := Te.TempDir()
	for _, name := range []string{"ranks.png", "ranks.svg"} {
		file := filepath.Join(dir, name)
		require.NoError(Te, RankPlot(ranked(), 3, "SAXS fit", file))
		st, err := os.Stat(file)
		require.NoError(Te, err)
		assert.Positive(Te, st.Size())
	}
	// topK beyond the population is not an error.
	assert.NoError(Te, RankPlot(ranked(), 10, "", filepath.Join(dir, "all.png")))
	assert.Error(Te, RankPlot(nil, 1, "", filepath.Join(dir, "none.png")))
}

func TestHistogramPlot(Te *testing.T) {
	file := filepath.Join(Te.TempDir(), "h.png")
	require.NoError(Te, HistogramPlot([]float64{2.1, 0.5, 3.3, 0.5, 1.0}, 4, "scores", file))
	assert.FileExists(Te, file)
	assert.Equal(Te, "out/ranks_histo.png", HistogramName("out/ranks.png"))
}
