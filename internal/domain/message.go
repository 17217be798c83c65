package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation. Turns are values and are never
// modified after AppendTurn returns them.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Clock formats the turn time the way the transcript shows it.
func (t Turn) Clock() string {
	return t.Timestamp.Format("15:04:05")
}
