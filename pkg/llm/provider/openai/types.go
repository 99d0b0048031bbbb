package openai

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completion response lilly reads.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// thread is returned by POST /threads.
type thread struct {
	ID string `json:"id"`
}

// threadMessageRequest is the body of POST /threads/{id}/messages.
type threadMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// runRequest is the body of POST /threads/{id}/runs.
type runRequest struct {
	AssistantID string `json:"assistant_id"`
}

// run is returned by the run create and retrieve endpoints.
type run struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
}

// threadMessageList is returned by GET /threads/{id}/messages.
type threadMessageList struct {
	Data []threadMessage `json:"data"`
}

type threadMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text *struct {
			Value string `json:"value"`
		} `json:"text,omitempty"`
	} `json:"content"`
}

// firstText returns the first text segment of the message.
func (m threadMessage) firstText() (string, bool) {
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			return part.Text.Value, true
		}
	}
	return "", false
}
