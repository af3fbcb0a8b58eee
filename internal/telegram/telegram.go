package telegram

import (
	"context"
	"fmt"

	"onu-map/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gookit/event"
)

type Telegram struct {
	bot          *bot.Bot
	eventManager *event.Manager
	logger       domain.Logger
}

func NewTelegram(token string, eventManager *event.Manager, logger domain.Logger) (*Telegram, error) {
	adapter := &Telegram{
		eventManager: eventManager,
		logger:       logger,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(adapter.defaultHandler),
		bot.WithErrorsHandler(func(err error) {
			logger.WithError(err).Warn("Telegram polling error")
		}),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	adapter.bot = b

	// Register bot handlers
	adapter.registerHandlers()

	// Register event listeners for responses
	adapter.registerEventListeners()

	return adapter, nil
}

// Serve polls for updates until ctx is done
func (t *Telegram) Serve(ctx context.Context) error {
	t.logger.Info("Telegram bot started")
	t.bot.Start(ctx)
	return ctx.Err()
}

func (t *Telegram) String() string {
	return "telegram-bot"
}

func (t *Telegram) registerHandlers() {
	t.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, t.handleMessage)
}

func (t *Telegram) handleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msgEvent := &domain.MessageEvent{
		UserID:  update.Message.From.ID,
		ChatID:  update.Message.Chat.ID,
		Message: update.Message.Text,
	}

	t.logger.WithFields(map[string]any{
		"user_id": msgEvent.UserID,
		"chat_id": msgEvent.ChatID,
	}).Debug("Received telegram message")

	// Emit event to core
	if err, _ := t.eventManager.Fire(domain.EventMessageReceived, event.M{"event": msgEvent}); err != nil {
		t.logger.WithError(err).Warn("Message handler failed")
	}
}

func (t *Telegram) registerEventListeners() {
	// Listen for send message events from core
	t.eventManager.On(domain.EventSendMessage, event.ListenerFunc(func(e event.Event) error {
		data, ok := e.Get("response").(*domain.MessageResponse)
		if !ok {
			return fmt.Errorf("invalid message response type")
		}

		params := &bot.SendMessageParams{
			ChatID: data.ChatID,
			Text:   data.Text,
		}
		if data.HTML {
			params.ParseMode = models.ParseModeHTML
		}

		if _, err := t.bot.SendMessage(context.Background(), params); err != nil {
			t.logger.WithError(err).WithField("chat_id", data.ChatID).Error("Error sending message")
			return err
		}

		return nil
	}))

	// Listen for typing action events
	t.eventManager.On(domain.EventSendTyping, event.ListenerFunc(func(e event.Event) error {
		chatID, ok := e.Get("chatID").(int64)
		if !ok {
			return fmt.Errorf("invalid chatID type")
		}

		_, err := t.bot.SendChatAction(context.Background(), &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		if err != nil {
			t.logger.WithError(err).Warn("Error sending typing action")
			return err
		}

		return nil
	}))
}

func (t *Telegram) defaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	t.logger.WithField("update_id", update.ID).Debug("Unhandled telegram update")
}
