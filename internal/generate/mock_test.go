package generate

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/formfill-cli/pkg/anthropic"
	"github.com/sells-group/formfill-cli/pkg/gemini"
)

type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) GenerateText(ctx context.Context, req gemini.TextRequest) (*gemini.TextResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*gemini.TextResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}
