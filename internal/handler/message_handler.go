package handler

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"onu-map/internal/domain"

	"github.com/gookit/event"
)

const eventsPerLog = 5

// Monitor is the part of the monitoring service the bot commands read
type Monitor interface {
	Statistics(ctx context.Context, filters domain.Filters) (*domain.StatsSummary, error)
	RecentEvents() domain.RecentEvents
	QuotaStatus() domain.QuotaStatus
}

type MessageHandler struct {
	eventManager *event.Manager
	monitor      Monitor
	messenger    *Messenger
	logger       domain.Logger
}

// NewMessageHandler creates a new bot command handler
func NewMessageHandler(eventManager *event.Manager, monitor Monitor, logger domain.Logger) *MessageHandler {
	return &MessageHandler{
		eventManager: eventManager,
		monitor:      monitor,
		messenger:    NewMessenger(eventManager),
		logger:       logger,
	}
}

// RegisterEventListeners registers the listener for incoming chat messages
func (h *MessageHandler) RegisterEventListeners() {
	h.eventManager.On(domain.EventMessageReceived, event.ListenerFunc(func(e event.Event) error {
		msgEvent, ok := e.Get("event").(*domain.MessageEvent)
		if !ok {
			return fmt.Errorf("invalid message event type")
		}
		return h.handleMessage(msgEvent)
	}))
}

// handleMessage routes a chat message to its command
func (h *MessageHandler) handleMessage(msg *domain.MessageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), TIMEOUT_COMMAND)
	defer cancel()

	command := parseCommand(msg.Message)
	h.logger.WithFields(map[string]any{
		"chat_id": msg.ChatID,
		"user_id": msg.UserID,
		"command": command,
	}).Debug("Bot command received")

	switch command {
	case "/status":
		return h.handleStatus(ctx, msg.ChatID)
	case "/events":
		return h.messenger.SendHTML(msg.ChatID, formatEvents(h.monitor.RecentEvents()))
	case "/quota":
		return h.messenger.SendHTML(msg.ChatID, formatQuota(h.monitor.QuotaStatus()))
	default:
		return h.messenger.SendMessage(msg.ChatID, MSG_HELP)
	}
}

func (h *MessageHandler) handleStatus(ctx context.Context, chatID int64) error {
	h.messenger.SendTypingIndicator(chatID)

	stats, err := h.monitor.Statistics(ctx, domain.Filters{})
	if err != nil {
		h.logger.WithError(err).Warn("Status command failed")
		if domain.IsKind(err, domain.KindQuotaExceeded) {
			return h.messenger.SendMessage(chatID, fmt.Sprintf(MSG_QUOTA_EXHAUSTED, domain.WaitMinutesOf(err)))
		}
		return h.messenger.SendMessage(chatID, fmt.Sprintf(MSG_UPSTREAM_FAILED, domain.KindOf(err)))
	}

	return h.messenger.SendHTML(chatID, formatStatus(stats))
}

// parseCommand returns the lowercased command of a message, without the
// @botname suffix telegram appends in groups
func parseCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	command, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(command)
}

func formatStatus(stats *domain.StatsSummary) string {
	var b strings.Builder
	b.WriteString(MSG_STATUS_HEADER)
	for _, st := range domain.Statuses {
		fmt.Fprintf(&b, MSG_STATUS_LINE, statusIcons[string(st)], st, stats.ByStatus[st])
	}
	fmt.Fprintf(&b, MSG_STATUS_FOOTER, stats.Total, stats.WithLocation)
	return b.String()
}

func formatEvents(recent domain.RecentEvents) string {
	var b strings.Builder
	writeLog := func(label string, events []domain.StatusEvent) {
		fmt.Fprintf(&b, MSG_EVENTS_HEADER, label)
		if len(events) == 0 {
			b.WriteString(MSG_EVENTS_EMPTY)
		}
		for i, ev := range events {
			if i == eventsPerLog {
				break
			}
			fmt.Fprintf(&b, MSG_EVENT_LINE,
				ev.ObservedAt.Format("02/01 15:04"),
				html.EscapeString(ev.Name),
				html.EscapeString(ev.ExternalID),
				html.EscapeString(boxLabel(ev.ODBName)),
			)
		}
	}

	writeLog("LOS", recent.LOS)
	b.WriteString("\n")
	writeLog("power fail", recent.PowerFail)
	return b.String()
}

func formatQuota(quota domain.QuotaStatus) string {
	classes := make([]string, 0, len(quota))
	for class := range quota {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	lines := make([]string, 0, len(classes))
	for _, class := range classes {
		q := quota[class]
		if q.Remaining == nil {
			lines = append(lines, fmt.Sprintf(MSG_QUOTA_UNRESTRICTED, class))
			continue
		}
		line := fmt.Sprintf(MSG_QUOTA_LINE, class, q.Used, q.Limit, *q.Remaining)
		if q.Used > 0 {
			line += fmt.Sprintf(MSG_QUOTA_RESET, q.ResetInMinutes)
		}
		lines = append(lines, line)
	}
	return MSG_QUOTA_HEADER + strings.Join(lines, "\n")
}

func boxLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "-"
	}
	return name
}
