package core

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// vectorDim is the dimensionality of the hashed bag-of-words embedding.
// Collisions at this size are rare enough for drift estimation; the score is
// a heuristic, not a retrieval index.
const vectorDim = 512

// DriftEstimator measures semantic divergence between a canonical content
// pool (doc text) and a live pool (recent Slack/Git text) for a component.
// By default it embeds locally with hashed term frequencies; an optional
// remote Embedder can replace that, with the local path as fallback when the
// service is slow or down.
type DriftEstimator struct {
	MatchThreshold float64

	// Embedder, when non-nil, is tried first. EmbedTimeout bounds each call.
	Embedder     contract.Embedder
	EmbedTimeout time.Duration
}

// NewDriftEstimator returns an estimator with the given match threshold.
func NewDriftEstimator(matchThreshold float64) *DriftEstimator {
	return &DriftEstimator{
		MatchThreshold: matchThreshold,
		EmbedTimeout:   contract.DefaultEmbedTimeout,
	}
}

// ComputeDrift measures drift between two content pools. The result reports
// cosine similarity, drift = 1 - cosine, and the number of live passages that
// still align with the canonical pool above the match threshold.
//
// Either pool being empty (no text at all, or nothing surviving
// tokenization) returns nil: drift against nothing is unknown, not 1.0, and
// composers must not let it inflate severity.
func (d *DriftEstimator) ComputeDrift(ctx context.Context, pair string, canonical, live []string) *schema.SemanticPair {
	canonicalText := strings.TrimSpace(strings.Join(canonical, "\n"))
	liveText := strings.TrimSpace(strings.Join(live, "\n"))
	if canonicalText == "" || liveText == "" {
		return nil
	}

	canonicalVec := d.embed(ctx, canonicalText)
	liveVec := d.embed(ctx, liveText)
	if isZeroVector(canonicalVec) || isZeroVector(liveVec) {
		return nil
	}

	cos := Cosine(canonicalVec, liveVec)

	matches := 0
	for _, passage := range live {
		if strings.TrimSpace(passage) == "" {
			continue
		}
		pv := d.embed(ctx, passage)
		if isZeroVector(pv) {
			continue
		}
		if Cosine(canonicalVec, pv) >= d.MatchThreshold {
			matches++
		}
	}

	return &schema.SemanticPair{
		Pair:    pair,
		Cosine:  cos,
		Drift:   1 - cos,
		Matches: matches,
	}
}

// embed produces a vector for the text, preferring the remote embedder when
// configured and falling back to the local hashed embedding on any failure.
func (d *DriftEstimator) embed(ctx context.Context, text string) []float64 {
	if d.Embedder != nil {
		timeout := d.EmbedTimeout
		if timeout <= 0 {
			timeout = contract.DefaultEmbedTimeout
		}
		embedCtx, cancel := context.WithTimeout(ctx, timeout)
		vec, err := d.Embedder.Embed(embedCtx, text)
		cancel()
		if err == nil && len(vec) > 0 {
			return vec
		}
		contract.LogWarn("embedding service failed, using local vectors", err)
	}
	return HashedVector(text)
}

// Tokenize lowercases and splits text into alphanumeric terms, dropping
// single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// HashedVector builds a term-frequency vector of fixed dimension by hashing
// each token into a bucket. Deterministic across runs and processes.
func HashedVector(text string) []float64 {
	vec := make([]float64, vectorDim)
	for _, token := range Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		vec[h.Sum64()%vectorDim]++
	}
	return vec
}

// Cosine returns the cosine similarity of two vectors, 0 when either has no
// magnitude or the dimensions differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isZeroVector(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// DriftPools extracts the canonical and live text pools for a component from
// its windowed signals. Doc bodies are canonical; Slack and Git titles/bodies
// are live.
func DriftPools(signals []schema.ActivitySignal) (canonical, liveSlack, liveGit []string) {
	for i := range signals {
		sig := &signals[i]
		text := strings.TrimSpace(sig.Title + "\n" + sig.Body)
		if text == "" {
			continue
		}
		switch sig.Source {
		case schema.DocSource:
			canonical = append(canonical, text)
		case schema.SlackSource:
			liveSlack = append(liveSlack, text)
		case schema.GitSource:
			liveGit = append(liveGit, text)
		}
	}
	return canonical, liveSlack, liveGit
}
