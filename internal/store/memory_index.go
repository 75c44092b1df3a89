package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/spigell/career-twin/internal/interview"
)

var _ interview.ProfileIndex = (*MemoryIndex)(nil)

// MemoryIndex ranks profile vectors by cosine similarity with a linear scan.
type MemoryIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	meta    map[string]map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		vectors: make(map[string][]float32),
		meta:    make(map[string]map[string]string),
	}
}

func (x *MemoryIndex) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" || len(vector) == 0 {
		return fmt.Errorf("%w: vector entry needs an id and values", interview.ErrInvalidInput)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.vectors[id] = append([]float32(nil), vector...)
	x.meta[id] = metadata

	return nil
}

// Query returns up to k ids, most similar first. Vectors of another length are skipped.
func (x *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}

	type scored struct {
		id    string
		score float64
	}

	x.mu.RLock()
	candidates := make([]scored, 0, len(x.vectors))
	for id, v := range x.vectors {
		if len(v) != len(vector) {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosine(vector, v)})
	}
	x.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}

	return ids, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
