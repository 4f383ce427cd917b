package message

import (
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ToChatCompletion converts messages into the go-openai request format so a
// built context can be handed directly to a chat completion call.
func ToChatCompletion(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// FromChatCompletion converts go-openai messages back into the internal
// representation. Roles outside the known set are kept verbatim; timestamps
// are assigned on conversion since the wire format carries none.
func FromChatCompletion(msgs []openai.ChatCompletionMessage) []Message {
	now := time.Now()
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{
			Role:      Role(m.Role),
			Content:   m.Content,
			Timestamp: now,
		})
	}
	return out
}
