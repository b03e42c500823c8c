package chat

// Message is one turn of the conversation as the dashboard sends it.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ToolCall records a tool the model invoked and what it returned.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Output    string         `json:"output"`
}

type Result struct {
	Messages  []Message  `json:"messages"`
	ToolCalls []ToolCall `json:"tool_calls"`
}
