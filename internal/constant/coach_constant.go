package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// Stream event types emitted on the chat streaming endpoints.
const (
	StreamEventFragment = "fragment"
	StreamEventFinish   = "finish"
	StreamEventError    = "error"
)

// TurnCompletedTopic is the in-process event bus topic published after
// every persisted coaching turn.
const TurnCompletedTopic = "coach.turn.completed"
