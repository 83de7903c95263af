package evaluation

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/mikey/email-tldr/internal/core"
)

// SamplePairs picks at most limit distinct indices out of n with a seeded
// generator. When n <= limit every index is returned in order.
func SamplePairs(n, limit int, seed int64) []int {
	if n <= limit || limit < 0 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return rand.New(rand.NewSource(seed)).Perm(n)[:limit]
}

// BERTScore is averaged embedding-similarity precision, recall and F1
type BERTScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// BERTScorer matches candidate and reference tokens greedily by cosine
// similarity of their embeddings
type BERTScorer struct {
	embedder  core.Embedder
	chunkSize int
}

// NewBERTScorer creates a scorer that embeds at most chunkSize tokens per request
func NewBERTScorer(embedder core.Embedder, chunkSize int) *BERTScorer {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	return &BERTScorer{embedder: embedder, chunkSize: chunkSize}
}

// Score averages per-pair scores over aligned candidates and references
func (s *BERTScorer) Score(ctx context.Context, candidates, references []string) (BERTScore, error) {
	n := min(len(candidates), len(references))
	if n == 0 {
		return BERTScore{}, nil
	}

	vectors, err := s.embedTokens(ctx, append(append([]string{}, candidates[:n]...), references[:n]...))
	if err != nil {
		return BERTScore{}, err
	}

	var total BERTScore
	for i := 0; i < n; i++ {
		p, r, f := greedyMatch(lookup(vectors, Tokenize(candidates[i])), lookup(vectors, Tokenize(references[i])))
		total.Precision += p
		total.Recall += r
		total.F1 += f
	}
	return BERTScore{
		Precision: total.Precision / float64(n),
		Recall:    total.Recall / float64(n),
		F1:        total.F1 / float64(n),
	}, nil
}

// embedTokens embeds every distinct token of texts once
func (s *BERTScorer) embedTokens(ctx context.Context, texts []string) (map[string][]float32, error) {
	seen := make(map[string]bool)
	var tokens []string
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}

	vectors := make(map[string][]float32, len(tokens))
	for start := 0; start < len(tokens); start += s.chunkSize {
		chunk := tokens[start:min(start+s.chunkSize, len(tokens))]
		embeddings, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to embed tokens: %w", err)
		}
		if len(embeddings) != len(chunk) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d tokens", len(embeddings), len(chunk))
		}
		for i, tok := range chunk {
			vectors[tok] = embeddings[i]
		}
	}
	return vectors, nil
}

func lookup(vectors map[string][]float32, tokens []string) [][]float32 {
	out := make([][]float32, len(tokens))
	for i, tok := range tokens {
		out[i] = vectors[tok]
	}
	return out
}

func greedyMatch(cand, ref [][]float32) (p, r, f float64) {
	if len(cand) == 0 || len(ref) == 0 {
		return 0, 0, 0
	}
	sim := make([][]float64, len(cand))
	for i := range cand {
		sim[i] = make([]float64, len(ref))
		for j := range ref {
			sim[i][j] = cosine(cand[i], ref[j])
		}
	}

	for i := range cand {
		best := math.Inf(-1)
		for j := range ref {
			best = math.Max(best, sim[i][j])
		}
		p += best
	}
	for j := range ref {
		best := math.Inf(-1)
		for i := range cand {
			best = math.Max(best, sim[i][j])
		}
		r += best
	}
	p /= float64(len(cand))
	r /= float64(len(ref))
	if p+r > 0 {
		f = 2 * p * r / (p + r)
	}
	return p, r, f
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
