package interview

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/spigell/career-twin/internal/ai"
)

var errNoRule = errors.New("no scripted reply")

// scriptedGenerator answers every request with the reply of the first rule whose
// marker occurs in the prompt. Requests matching no rule fail.
type scriptedGenerator struct {
	mu       sync.Mutex
	rules    []rule
	requests []ai.Request
}

type rule struct {
	marker string
	reply  string
	err    error
}

func (g *scriptedGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	for _, r := range g.rules {
		if strings.Contains(req.Prompt, r.marker) {
			return r.reply, r.err
		}
	}
	return "", errNoRule
}

func (g *scriptedGenerator) calls() []ai.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.Request(nil), g.requests...)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "q" + strconv.Itoa(n)
	}
}

// stallingGenerator blocks every request until its context ends.
type stallingGenerator struct{}

func (stallingGenerator) Generate(ctx context.Context, _ ai.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
