// Package histo builds histograms and summary statistics for the
// scores of a set of candidates.
package histo

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Data is a histogram. Each bin i counts the values v with
// dividers[i] <= v < dividers[i+1].
type Data struct {
	normalized bool
	total      int
	dividers   []float64
	histo      []float64
}

func (D *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Normalized bool      `json:"normalized"`
		Total      int       `json:"total"`
		Dividers   []float64 `json:"dividers"`
		Histo      []float64 `json:"histo"`
	}{
		Normalized: D.normalized,
		Total:      D.total,
		Dividers:   D.dividers,
		Histo:      D.histo,
	})
}

// String returns a two-line representation of the histogram: the
// ranges of the bins, and their values.
func (D *Data) String() string {
	ret := fmt.Sprintf("Normalized: %v, TotalData: %d\n", D.normalized, D.total)
	d := make([]string, 0, len(D.histo))
	h := make([]string, 0, len(D.histo))
	for i, v := range D.histo {
		d = append(d, fmt.Sprintf("%4.2f-%4.2f", D.dividers[i], D.dividers[i+1]))
		h = append(h, fmt.Sprintf("%9.3f", v))
	}
	return ret + fmt.Sprintf("%s\n%s", strings.Join(d, " "), strings.Join(h, " "))
}

// NewData returns a new histogram with the given dividers, filled with
// rawdata, which can be nil. rawdata is not modified.
func NewData(dividers []float64, rawdata []float64) *Data {
	if len(dividers) < 2 {
		panic("scoper/histo.NewData: at least 2 dividers are needed")
	}
	d := new(Data)
	d.dividers = make([]float64, len(dividers))
	copy(d.dividers, dividers)
	d.histo = make([]float64, len(dividers)-1)
	if rawdata != nil {
		d.ReHisto(rawdata)
	}
	return d
}

// Dividers returns bins+1 evenly spaced dividers covering [min, max].
// The last divider is nudged up so max itself falls in the last bin.
// If min and max are equal, the range is widened to [min-0.5, max+0.5].
func Dividers(min, max float64, bins int) []float64 {
	if bins < 1 {
		bins = 1
	}
	if max < min {
		min, max = max, min
	}
	if max == min {
		min, max = min-0.5, max+0.5
	}
	return floats.Span(make([]float64, bins+1), min, math.Nextafter(max, math.Inf(1)))
}

// FromScores returns a histogram of values with the given number of
// bins, spanning from the smallest to the largest value. It returns nil
// if values is empty.
func FromScores(values []float64, bins int) *Data {
	if len(values) == 0 {
		return nil
	}
	return NewData(Dividers(floats.Min(values), floats.Max(values), bins), values)
}

// AddData adds the given data point(s) to the histogram. Points outside
// the dividers are counted in the total, but not in any bin.
func (D *Data) AddData(point ...float64) {
	norma := D.normalized
	if norma {
		D.UnNormalize()
	}
	for _, v := range point {
		//the index of the first divider larger than v
		j := sort.Search(len(D.dividers), func(i int) bool { return D.dividers[i] > v })
		if j > 0 && j < len(D.dividers) {
			D.histo[j-1]++
		}
	}
	D.total += len(point)
	if norma {
		D.Normalize()
	}
}

// Normalized returns true if the histogram is normalized.
func (D *Data) Normalized() bool {
	return D.normalized
}

// Normalize divides every bin by the total number of data points.
func (D *Data) Normalize() {
	D.normaunnorma(true)
}

// UnNormalize reverses Normalize.
func (D *Data) UnNormalize() {
	D.normaunnorma(false)
}

func (D *Data) normaunnorma(normalize bool) {
	if D.total <= 0 || D.normalized == normalize {
		return
	}
	n := float64(D.total)
	if normalize {
		n = 1 / n
	}
	D.normalized = normalize
	floats.Scale(n, D.histo)
}

// Total returns the number of points added to the histogram.
func (D *Data) Total() int {
	return D.total
}

// Dividers returns a copy of the dividers of the histogram.
func (D *Data) Dividers() []float64 {
	return append([]float64(nil), D.dividers...)
}

// Counts returns a copy of the bin values.
func (D *Data) Counts() []float64 {
	return append([]float64(nil), D.histo...)
}

// Sum returns the sum of all bins.
func (D *Data) Sum() float64 {
	return floats.Sum(D.histo)
}

// ReHisto discards the current contents of the histogram and fills it
// with rawdata. Values outside the dividers are left out, also from the total.
func (D *Data) ReHisto(rawdata []float64) {
	data := append([]float64(nil), rawdata...)
	sort.Float64s(data)
	//stat.Histogram panics instead of omitting the values that are off limits
	//so we remove them here before the call.
	maxi := sort.SearchFloat64s(data, D.dividers[len(D.dividers)-1])
	data = data[:maxi]
	mini := sort.SearchFloat64s(data, D.dividers[0])
	data = data[mini:]
	D.normalized = false
	D.total = len(data)
	if len(data) == 0 {
		D.histo = make([]float64, len(D.dividers)-1)
		return
	}
	D.histo = stat.Histogram(nil, D.dividers, data, nil)
}

// Summary contains descriptive statistics of a set of scores.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summarize returns the statistics of values. values is not modified.
// The standard deviation of a single value is 0.
func Summarize(values []float64) Summary {
	s := Summary{N: len(values)}
	if s.N == 0 {
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	if s.N == 1 {
		s.StdDev = 0
	}
	s.Min = sorted[0]
	s.Max = sorted[s.N-1]
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}
