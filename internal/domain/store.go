package domain

type ConversationStore interface {
	Conversation(sessionID string) *Conversation
	Drop(sessionID string)
}
