// Package dataset loads (email body, summary) pairs and splits them for training and evaluation.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
)

// Example is one email and its reference summary
type Example struct {
	Body    string
	Summary string
}

// LoadExamples reads a CSV file with body and summary columns
func LoadExamples(path string) ([]Example, error) {
	rows, err := LoadColumns(path, "body", "summary")
	if err != nil {
		return nil, err
	}
	examples := make([]Example, len(rows))
	for i, row := range rows {
		examples[i] = Example{Body: row[0], Summary: row[1]}
	}
	return examples, nil
}

// LoadColumns reads the named columns of a CSV file, in the order given
func LoadColumns(path string, names ...string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	rows, err := ReadColumns(f, names...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadColumns reads the named columns from CSV data with a header row.
// A missing column is an error.
func ReadColumns(r io.Reader, names ...string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	cols := make([]int, len(names))
	for i, name := range names {
		col, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = col
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		row := make([]string, len(cols))
		for i, col := range cols {
			if col < len(record) {
				row[i] = record[col]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Split shuffles examples with a fixed seed and holds out ceil(valFraction*n)
// of them for validation. The input slice is not modified.
func Split(examples []Example, valFraction float64, seed int64) (train, validation []Example) {
	n := len(examples)
	if n == 0 {
		return nil, nil
	}

	nVal := int(math.Ceil(valFraction * float64(n)))
	if nVal < 0 {
		nVal = 0
	}
	if nVal >= n && n > 1 {
		nVal = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	shuffled := make([]Example, n)
	for i, j := range perm {
		shuffled[i] = examples[j]
	}
	return shuffled[nVal:], shuffled[:nVal]
}
