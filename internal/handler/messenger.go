package handler

import (
	"onu-map/internal/domain"

	"github.com/gookit/event"
)

// Messenger handles sending messages to chats
type Messenger struct {
	eventManager *event.Manager
}

// NewMessenger creates a new messenger instance
func NewMessenger(eventManager *event.Manager) *Messenger {
	return &Messenger{
		eventManager: eventManager,
	}
}

// SendMessage sends a plain text message to a chat
func (m *Messenger) SendMessage(chatID int64, text string) error {
	return m.send(&domain.MessageResponse{
		ChatID: chatID,
		Text:   text,
	})
}

// SendHTML sends a message rendered with telegram's HTML subset
func (m *Messenger) SendHTML(chatID int64, text string) error {
	return m.send(&domain.MessageResponse{
		ChatID: chatID,
		Text:   text,
		HTML:   true,
	})
}

// SendTypingIndicator sends a typing action to show the bot is processing
func (m *Messenger) SendTypingIndicator(chatID int64) {
	_, _ = m.eventManager.Fire(domain.EventSendTyping, event.M{
		"chatID": chatID,
	})
}

func (m *Messenger) send(response *domain.MessageResponse) error {
	err, _ := m.eventManager.Fire(domain.EventSendMessage, event.M{
		"response": response,
	})
	return err
}
