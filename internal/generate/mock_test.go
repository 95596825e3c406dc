package generate

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, loc model.Location, count int) ([]model.Candidate, bool, error) {
	args := m.Called(ctx, loc, count)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]model.Candidate), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, loc model.Location, count int, cands []model.Candidate) error {
	args := m.Called(ctx, loc, count, cands)
	return args.Error(0)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}
