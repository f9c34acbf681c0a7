package agent

import (
	"context"
	"errors"

	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// scriptedProvider replays a fixed sequence of responses, one per Chat
// call, then repeats its last response forever. A nil entry in responses
// makes that call return errFake.
type scriptedProvider struct {
	responses []*providers.ChatResponse
	calls     int
}

var errFake = errors.New("fake provider error")

func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if len(p.responses) == 0 {
		return &providers.ChatResponse{Content: "ok"}, nil
	}
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	resp := p.responses[idx]
	if resp == nil {
		return nil, errFake
	}
	return resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	return p.Chat(ctx, req)
}

func (p *scriptedProvider) DefaultModel() string { return "fake-model" }
func (p *scriptedProvider) Name() string         { return "fake" }
