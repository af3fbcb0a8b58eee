package domain

// Event bus names
const (
	EventStatusChanged   = "onu.status.changed"
	EventMessageReceived = "telegram.message.received"
	EventSendMessage     = "telegram.send.message"
	EventSendTyping      = "telegram.send.typing"
)

// MessageEvent is a chat message received by the bot
type MessageEvent struct {
	UserID  int64
	ChatID  int64
	Message string
}

// MessageResponse is a chat message to be sent by the bot
type MessageResponse struct {
	ChatID int64
	Text   string
	HTML   bool
}
