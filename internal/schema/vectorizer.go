package schema

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// hashingVectorizer embeds text with feature hashing: each token is hashed
// into a fixed-dimension bucket with a hash-derived sign, and the resulting
// count vector is L2-normalized. Deterministic and vocabulary-free, so query
// and document vectors are always comparable without a model.
type hashingVectorizer struct {
	dims int
}

func newHashingVectorizer(dims int) *hashingVectorizer {
	if dims <= 0 {
		dims = 256
	}
	return &hashingVectorizer{dims: dims}
}

// Embed produces the normalized feature-hash vector for the given text.
func (v *hashingVectorizer) Embed(text string) []float64 {
	vec := make([]float64, v.dims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % uint32(v.dims))
		sign := 1.0
		if sum&0x80000000 != 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// tokenize lowercases and splits on any non-alphanumeric rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// cosineSimilarity computes the cosine similarity of two vectors of equal
// length. Returns 0 for zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
