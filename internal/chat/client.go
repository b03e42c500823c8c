package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Model produces the next response for a request.
type Model interface {
	Respond(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error)
}

// OpenAIModel calls the Responses API of OpenAI or a compatible server.
type OpenAIModel struct {
	responses responses.ResponseService
}

func NewOpenAIModel(baseURL, apiKey string, opts ...option.RequestOption) *OpenAIModel {
	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(60 * time.Second),
	}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIModel{responses: client.Responses}
}

func (m *OpenAIModel) Respond(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	resp, err := m.responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	return resp, nil
}
