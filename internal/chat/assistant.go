// Package chat runs the operator assistant: a tool-calling loop over the
// OpenAI Responses API with access to sensor history and actuators.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"
)

const maxIterations = 20

const systemPrompt = `You are FireGuard, a functional device for monitoring and alerting fire hazards.
Keep response concise, refrain from answering outside of your domain.

You have access to the system's sensors, which is polled periodically every few
seconds. When presenting sensor data, format it as a markdown table for clarity.`

var ErrNoMessages = errors.New("no messages provided")

type Assistant struct {
	model     Model
	modelName string
	tools     *Toolbox
	log       *logrus.Entry
}

func NewAssistant(model Model, modelName string, tools *Toolbox, log *logrus.Entry) *Assistant {
	return &Assistant{model: model, modelName: modelName, tools: tools, log: log}
}

func messageItem(role, content string) responses.ResponseInputItemUnionParam {
	return responses.ResponseInputItemUnionParam{OfMessage: &responses.EasyInputMessageParam{
		Role:    responses.EasyInputMessageRole(role),
		Content: responses.EasyInputMessageContentUnionParam{OfString: openai.String(content)},
	}}
}

// Chat answers the conversation in messages. It keeps calling the model
// while the model keeps requesting tools, up to maxIterations rounds, and
// returns only the new assistant messages plus every tool call made.
func (a *Assistant) Chat(ctx context.Context, messages []Message) (Result, error) {
	if len(messages) == 0 {
		return Result{}, ErrNoMessages
	}

	input := make(responses.ResponseInputParam, 0, len(messages)+1)
	input = append(input, messageItem("system", systemPrompt))
	for _, m := range messages {
		input = append(input, messageItem(m.Role, m.Content))
	}

	result := Result{Messages: []Message{}, ToolCalls: []ToolCall{}}
	for i := 0; i < maxIterations; i++ {
		resp, err := a.model.Respond(ctx, responses.ResponseNewParams{
			Model: shared.ResponsesModel(a.modelName),
			Tools: a.tools.Definitions(),
			Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		})
		if err != nil {
			return Result{}, fmt.Errorf("chat round %d: %w", i+1, err)
		}

		calledTool := false
		for _, out := range resp.Output {
			switch out.Type {
			case "function_call":
				calledTool = true
				args := map[string]any{}
				if err := json.Unmarshal([]byte(out.Arguments), &args); err != nil {
					a.log.Warnf("Tool %s sent unparseable arguments: %v", out.Name, err)
				}
				output := a.tools.Call(ctx, out.Name, args)
				a.log.Infof("Tool %s called with %s", out.Name, out.Arguments)

				result.ToolCalls = append(result.ToolCalls, ToolCall{Name: out.Name, Arguments: args, Output: output})
				input = append(input,
					responses.ResponseInputItemUnionParam{OfFunctionCall: &responses.ResponseFunctionToolCallParam{
						CallID:    out.CallID,
						Name:      out.Name,
						Arguments: out.Arguments,
					}},
					responses.ResponseInputItemUnionParam{OfFunctionCallOutput: &responses.ResponseInputItemFunctionCallOutputParam{
						CallID: out.CallID,
						Output: output,
					}},
				)
			case "message":
				msg := Message{Role: "assistant", Content: messageText(out.Content)}
				input = append(input, messageItem(msg.Role, msg.Content))
				result.Messages = append(result.Messages, msg)
			}
		}

		if !calledTool {
			break
		}
	}
	return result, nil
}

func messageText(parts []responses.ResponseOutputMessageContentUnion) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "output_text":
			texts = append(texts, p.Text)
		case "refusal":
			texts = append(texts, p.Refusal)
		}
	}
	return strings.Join(texts, "\n\n")
}
