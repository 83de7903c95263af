package evaluation

import (
	"strings"
	"unicode"
)

// Score is a precision/recall/F-measure triple
type Score struct {
	Precision float64 `json:"p"`
	Recall    float64 `json:"r"`
	F         float64 `json:"f"`
}

func newScore(hits, candTotal, refTotal int) Score {
	if candTotal == 0 && refTotal == 0 {
		return Score{1, 1, 1}
	}
	if hits == 0 || candTotal == 0 || refTotal == 0 {
		return Score{}
	}
	p := float64(hits) / float64(candTotal)
	r := float64(hits) / float64(refTotal)
	return Score{Precision: p, Recall: r, F: 2 * p * r / (p + r)}
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// RougeN scores n-gram overlap of a candidate against a reference
func RougeN(reference, candidate string, n int) Score {
	ref := ngrams(Tokenize(reference), n)
	cand := ngrams(Tokenize(candidate), n)

	hits, refTotal, candTotal := 0, 0, 0
	for g, c := range ref {
		refTotal += c
		hits += min(c, cand[g])
	}
	for _, c := range cand {
		candTotal += c
	}
	return newScore(hits, candTotal, refTotal)
}

// lcsTable returns the dynamic-programming table for the longest common subsequence of a and b
func lcsTable(a, b []string) [][]int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}
	return table
}

// RougeL scores the longest common subsequence of a candidate and a reference
func RougeL(reference, candidate string) Score {
	ref, cand := Tokenize(reference), Tokenize(candidate)
	lcs := lcsTable(ref, cand)[len(ref)][len(cand)]
	return newScore(lcs, len(cand), len(ref))
}

// lcsIndices returns the positions in a that take part in one LCS of a and b
func lcsIndices(a, b []string) []int {
	table := lcsTable(a, b)
	var idx []int
	for i, j := len(a), len(b); i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			idx = append(idx, i-1)
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return idx
}

// RougeLsum is summary-level ROUGE-L: texts are split into sentences on
// newlines and each reference sentence is matched against the union of its
// LCS with every candidate sentence
func RougeLsum(reference, candidate string) Score {
	refSents := sentences(reference)
	candSents := sentences(candidate)

	refTotal, candTotal := 0, 0
	for _, s := range candSents {
		candTotal += len(s)
	}

	hits := 0
	for _, r := range refSents {
		refTotal += len(r)
		union := make(map[int]bool)
		for _, c := range candSents {
			for _, i := range lcsIndices(r, c) {
				union[i] = true
			}
		}
		hits += len(union)
	}
	hits = min(hits, candTotal)
	return newScore(hits, candTotal, refTotal)
}

func sentences(text string) [][]string {
	var out [][]string
	for _, line := range strings.Split(text, "\n") {
		if tokens := Tokenize(line); len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out
}

// RougeAccumulator keeps running ROUGE-1/2/L/Lsum F-measures over many pairs
type RougeAccumulator struct {
	n                 int
	r1, r2, rl, rlsum float64
}

// Add scores one prediction against its reference
func (a *RougeAccumulator) Add(reference, prediction string) {
	a.n++
	a.r1 += RougeN(reference, prediction, 1).F
	a.r2 += RougeN(reference, prediction, 2).F
	a.rl += RougeL(reference, prediction).F
	a.rlsum += RougeLsum(reference, prediction).F
}

// AddBatch scores aligned slices of references and predictions
func (a *RougeAccumulator) AddBatch(references, predictions []string) {
	for i := range references {
		a.Add(references[i], predictions[i])
	}
}

// Count returns the number of pairs added
func (a *RougeAccumulator) Count() int {
	return a.n
}

// Compute returns mean F-measures scaled to 0-100
func (a *RougeAccumulator) Compute() map[string]float64 {
	if a.n == 0 {
		return map[string]float64{"rouge1": 0, "rouge2": 0, "rougeL": 0, "rougeLsum": 0}
	}
	scale := 100 / float64(a.n)
	return map[string]float64{
		"rouge1":    a.r1 * scale,
		"rouge2":    a.r2 * scale,
		"rougeL":    a.rl * scale,
		"rougeLsum": a.rlsum * scale,
	}
}

// RougeMetric scores each (reference, generated) pair with ROUGE-1, ROUGE-2
// and ROUGE-L and returns the unweighted mean over all pairs, keyed
// "rouge-1", "rouge-2" and "rouge-l"
func RougeMetric(references, generated []string) map[string]Score {
	avg := map[string]Score{"rouge-1": {}, "rouge-2": {}, "rouge-l": {}}
	n := min(len(references), len(generated))
	if n == 0 {
		return avg
	}

	add := func(key string, s Score) {
		cur := avg[key]
		cur.Precision += s.Precision
		cur.Recall += s.Recall
		cur.F += s.F
		avg[key] = cur
	}
	for i := 0; i < n; i++ {
		add("rouge-1", RougeN(references[i], generated[i], 1))
		add("rouge-2", RougeN(references[i], generated[i], 2))
		add("rouge-l", RougeL(references[i], generated[i]))
	}
	for key, s := range avg {
		avg[key] = Score{
			Precision: s.Precision / float64(n),
			Recall:    s.Recall / float64(n),
			F:         s.F / float64(n),
		}
	}
	return avg
}
