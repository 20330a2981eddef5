// Package mock provides a scriptable llm.Provider for tests.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/talkdeck/talkdeck/pkg/provider/llm"
)

// Compile-time assertion that Provider satisfies llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider is a test double that streams scripted chunks. Safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// Chunks is the sequence streamed by every StreamCompletion call. When
	// empty, the stream closes immediately after a bare "stop" chunk.
	Chunks []llm.Chunk

	// StartErr, when non-nil, is returned by StreamCompletion before any
	// chunk is emitted.
	StartErr error

	// Requests records every request passed to StreamCompletion or Complete.
	Requests []llm.CompletionRequest
}

// StreamCompletion implements llm.Provider by replaying the scripted chunks.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	chunks := make([]llm.Chunk, len(p.Chunks))
	copy(chunks, p.Chunks)
	startErr := p.StartErr
	p.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}

	ch := make(chan llm.Chunk, len(chunks)+1)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
		if len(chunks) == 0 || chunks[len(chunks)-1].FinishReason == "" {
			select {
			case ch <- llm.Chunk{FinishReason: "stop"}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

// Complete implements llm.Provider by concatenating the scripted chunk text.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)
	if p.StartErr != nil {
		return "", p.StartErr
	}
	var sb strings.Builder
	for _, c := range p.Chunks {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// RequestCount returns how many requests were issued.
func (p *Provider) RequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// LastRequest returns the most recent request, or a zero value when none.
func (p *Provider) LastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Requests) == 0 {
		return llm.CompletionRequest{}
	}
	return p.Requests[len(p.Requests)-1]
}
