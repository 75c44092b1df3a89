package ai

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math/rand"
)

// HashEmbedder derives a deterministic pseudo-random vector from the text digest.
// Equal texts map to equal vectors; the vectors carry no semantic meaning.
type HashEmbedder struct {
	Dimensions int
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dimensions: EmbeddingDimensions}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := h.Dimensions
	if dims <= 0 {
		dims = EmbeddingDimensions
	}

	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint32(sum[12:]))
	rng := rand.New(rand.NewSource(seed))

	vector := make([]float32, dims)
	for i := range vector {
		vector[i] = rng.Float32()
	}

	return vector, nil
}
