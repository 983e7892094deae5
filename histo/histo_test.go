package histo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoCounts(Te *testing.T) {
	rawdata := []float64{1, 6, 3, 2, 4, 5, 7, 6, 3.5, 3, 5, 1, 1, 0, 0, 5, 8, 1, 2, 3, 44, 3, 7, 3, 1, 3, 5, 32, 1}
	D := NewData([]float64{0, 1, 2, 3, 4, 8}, rawdata)
	// 8, 32 and 44 are beyond the last divider.
	assert.Equal(Te, []float64{2, 6, 2, 7, 9}, D.Counts())
	assert.Equal(Te, 26, D.Total())
	assert.Equal(Te, 29, len(rawdata))
	assert.Equal(Te, 1.0, rawdata[0], "input was modified")

	D.Normalize()
	assert.InDelta(Te, 1.0, D.Sum(), 1e-12)
	D.AddData(0.5)
	assert.True(Te, D.Normalized())
	D.UnNormalize()
	assert.InDelta(Te, 3.0, D.Counts()[0], 1e-12)
	assert.Equal(Te, 27, D.Total())
}

func TestFromScores(Te *testing.T) {
	scores := []float64{2.1, 0.5, 3.3, 0.5, 1.0}
	D := FromScores(scores, 4)
	require.NotNil(Te, D)
	assert.Equal(Te, 5, D.Total())
	assert.InDelta(Te, 5.0, D.Sum(), 1e-12)
	div := D.Dividers()
	assert.Len(Te, div, 5)
	assert.Equal(Te, 0.5, div[0])
	assert.Greater(Te, div[4], 3.3)
	// 3.3, the maximum, lands in the last bin.
	assert.Equal(Te, 1.0, D.Counts()[3])

	assert.Nil(Te, FromScores(nil, 4))
	single := FromScores([]float64{1.5}, 3)
	assert.Equal(Te, 1, single.Total())
}

func TestFromEqualScores(Te *testing.T) {
	zero := FromScores([]float64{0}, 10)
	assert.Equal(Te, 1, zero.Total())
	same := FromScores([]float64{2, 2, 2}, 4)
	assert.Equal(Te, 3, same.Total())
	div := same.Dividers()
	assert.Equal(Te, 1.5, div[0])
	for i := 1; i < len(div); i++ {
		assert.Greater(Te, div[i], div[i-1])
	}
}

func TestSummarize(Te *testing.T) {
	s := Summarize([]float64{2.1, 0.5, 3.3, 0.5, 1.0})
	assert.Equal(Te, 5, s.N)
	assert.InDelta(Te, 1.48, s.Mean, 1e-12)
	assert.Equal(Te, 0.5, s.Min)
	assert.Equal(Te, 3.3, s.Max)
	assert.Equal(Te, 1.0, s.Median)
	assert.Greater(Te, s.StdDev, 0.0)

	one := Summarize([]float64{4})
	assert.Equal(Te, 0.0, one.StdDev)
	assert.False(Te, math.IsNaN(one.StdDev))
	assert.Equal(Te, Summary{}, Summarize(nil))
}

func TestJSON(Te *testing.T) {
	D := NewData([]float64{0, 1, 2}, []float64{0.5, 1.5, 1.7})
	j, err := json.Marshal(D)
	require.NoError(Te, err)
	var back struct {
		Total int       `json:"total"`
		Histo []float64 `json:"histo"`
	}
	require.NoError(Te, json.Unmarshal(j, &back))
	assert.Equal(Te, 3, back.Total)
	assert.Equal(Te, []float64{1, 2}, back.Histo)
}
