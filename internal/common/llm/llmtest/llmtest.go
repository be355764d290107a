// Package llmtest provides deterministic Generator and Embedder doubles.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrUnavailable is returned by Generator when no rule matches and no
// default reply is set.
var ErrUnavailable = errors.New("llmtest: model unavailable")

type rule struct {
	contains string
	reply    string
	err      error
}

// Generator answers prompts by substring rules, in registration order.
type Generator struct {
	mu      sync.Mutex
	rules   []rule
	def     *rule
	prompts []string
}

func NewGenerator() *Generator {
	return &Generator{}
}

// On replies with reply to any prompt containing substr.
func (g *Generator) On(substr, reply string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = append(g.rules, rule{contains: substr, reply: reply})
	return g
}

// FailOn returns err for any prompt containing substr.
func (g *Generator) FailOn(substr string, err error) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = append(g.rules, rule{contains: substr, err: err})
	return g
}

// Default sets the reply used when no rule matches.
func (g *Generator) Default(reply string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.def = &rule{reply: reply}
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	rules := g.rules
	def := g.def
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range rules {
		if strings.Contains(prompt, r.contains) {
			return r.reply, r.err
		}
	}
	if def != nil {
		return def.reply, nil
	}
	return "", ErrUnavailable
}

// Prompts returns every prompt received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// Calls counts prompts containing substr. An empty substr counts all.
func (g *Generator) Calls(substr string) int {
	n := 0
	for _, p := range g.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

// Embedder returns fixed vectors, or Err when set.
type Embedder struct {
	Vector []float32
	Err    error

	mu    sync.Mutex
	calls int
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
