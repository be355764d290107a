package models

import "time"

// Turn senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// HistoryTurn is one prior message in a conversation.
type HistoryTurn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Session is a stored conversation.
type Session struct {
	ID           string        `json:"id"`
	Turns        []HistoryTurn `json:"turns"`
	LastActivity time.Time     `json:"lastActivity"`
}

// Recent returns at most n trailing turns.
func Recent(history []HistoryTurn, n int) []HistoryTurn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
