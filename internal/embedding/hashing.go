package embedding

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Hashing is an offline, deterministic embedder: prose tokens and token
// bigrams are feature-hashed into a signed bag-of-features vector. Equal text
// always yields an equal vector, across runs and processes.
type Hashing struct {
	dim int
}

func NewHashing(dim int) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing embedder dimension must be positive, got %d", dim)
	}
	return &Hashing{dim: dim}, nil
}

func (h *Hashing) Name() string   { return "hashing" }
func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens, err := tokenize(text)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize text %d: %w", i, err)
		}
		vectors[i] = Normalize(h.vector(tokens))
	}
	return vectors, nil
}

func (h *Hashing) vector(tokens []string) []float32 {
	v := make([]float32, h.dim)
	for i, tok := range tokens {
		h.add(v, tok, 1)
		if i > 0 {
			h.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return v
}

func (h *Hashing) add(v []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

var errTokenizer = errors.New("tokenizer returned no document")

// tokenize lowercases text and keeps tokens carrying at least one letter or digit.
func tokenize(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(strings.ToLower(text),
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errTokenizer
	}

	var out []string
	for _, tok := range doc.Tokens() {
		if strings.IndexFunc(tok.Text, isWordRune) >= 0 {
			out = append(out, tok.Text)
		}
	}
	return out, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
