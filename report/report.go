// Package report writes and reads the score tables of scoper runs.
//
// A table is a text file with a header of "# key=value" lines followed by
// one tab-separated line per candidate: rank, name, score, whether the
// candidate was selected, and its path. Tables whose names end in .zst
// are compressed with zstd, and those ending in .gz with gzip.
package report

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/rmera/scoper"
)

// Row is one candidate in a score table.
type Row struct {
	Rank     int
	Name     string
	Score    float64
	Selected bool
	Path     string
}

// Rows builds the rows of a table from a ranking. The first k
// candidates are marked as selected.
func Rows(ranked []scoper.Scored, k int) []Row {
	ret := make([]Row, len(ranked))
	for i, s := range ranked {
		ret[i] = Row{Rank: i + 1, Name: s.Name, Score: s.Score, Selected: i < k, Path: s.Path}
	}
	return ret
}

const columns = "rank\tname\tscore\tselected\tpath"

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// zstdReadCloser is needed as *zstd.Decoder's Close returns nothing.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (Z zstdReadCloser) Close() error {
	Z.Decoder.Close()
	return nil
}

func newWriter(name string, w io.Writer) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case strings.HasSuffix(name, ".gz"):
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	default:
		return nopCloser{w}, nil
	}
}

func newReader(name string, r io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{d}, nil
	case strings.HasSuffix(name, ".gz"):
		return gzip.NewReader(r)
	default:
		return io.NopCloser(r), nil
	}
}

// WriteTable writes the rows to the file name. header is written first,
// sorted by key. Keys and values must not contain newlines.
func WriteTable(name string, header map[string]string, rows []Row) (err error) {
	const errid = "report/WriteTable"
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%s: %w", errid, cerr)
		}
	}()
	cw, err := newWriter(name, f)
	if err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	w := bufio.NewWriter(cw)
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "# %s=%s\n", k, header[k])
	}
	fmt.Fprintln(w, columns)
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", r.Rank, r.Name, strconv.FormatFloat(r.Score, 'g', -1, 64), r.Selected, r.Path)
	}
	if err := w.Flush(); err != nil {
		cw.Close()
		return fmt.Errorf("%s: %w", errid, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("%s: %w", errid, err)
	}
	return nil
}

// ReadTable reads a table written by WriteTable.
func ReadTable(name string) (map[string]string, []Row, error) {
	const errid = "report/ReadTable"
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errid, err)
	}
	defer f.Close()
	cr, err := newReader(name, f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errid, err)
	}
	defer cr.Close()
	header := make(map[string]string)
	var rows []Row
	scanner := bufio.NewScanner(cr)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			k, v, ok := strings.Cut(strings.TrimSpace(line[1:]), "=")
			if ok {
				header[k] = v
			}
			continue
		}
		if line == columns || strings.TrimSpace(line) == "" {
			continue
		}
		r, err := parseRow(line)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %s line %d: %w", errid, name, lineno, err)
		}
		rows = append(rows, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errid, err)
	}
	return header, rows, nil
}

func parseRow(line string) (Row, error) {
	var r Row
	f := strings.SplitN(line, "\t", 5)
	if len(f) != 5 {
		return r, fmt.Errorf("expected 5 fields, found %d", len(f))
	}
	err := make([]error, 3)
	r.Rank, err[0] = strconv.Atoi(f[0])
	r.Name = f[1]
	r.Score, err[1] = strconv.ParseFloat(f[2], 64)
	r.Selected, err[2] = strconv.ParseBool(f[3])
	r.Path = f[4]
	for _, e := range err {
		if e != nil {
			return r, e
		}
	}
	return r, nil
}
