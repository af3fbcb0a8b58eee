package handler

import (
	"context"
	"fmt"
	"html"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	"github.com/gookit/event"
)

const alertQueueSize = 128

// AlertHandler pushes LOS and power fail transitions, and recoveries from
// them, to a telegram chat. Listeners run on the firing goroutine, so alerts
// are queued and delivered by Serve.
type AlertHandler struct {
	eventManager *event.Manager
	messenger    *Messenger
	chatID       int64
	queue        chan domain.StatusEvent
	logger       domain.Logger
}

// NewAlertHandler creates an alert handler targeting chatID
func NewAlertHandler(eventManager *event.Manager, chatID int64, logger domain.Logger) *AlertHandler {
	return &AlertHandler{
		eventManager: eventManager,
		messenger:    NewMessenger(eventManager),
		chatID:       chatID,
		queue:        make(chan domain.StatusEvent, alertQueueSize),
		logger:       logger,
	}
}

// RegisterEventListeners subscribes to status transitions
func (h *AlertHandler) RegisterEventListeners() {
	h.eventManager.On(domain.EventStatusChanged, event.ListenerFunc(func(e event.Event) error {
		ev, ok := e.Get("event").(*domain.StatusEvent)
		if !ok {
			return fmt.Errorf("invalid status event type")
		}
		h.enqueue(*ev)
		return nil
	}))
}

// Serve delivers queued alerts until ctx is done
func (h *AlertHandler) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-h.queue:
			err := h.messenger.SendHTML(h.chatID, FormatAlert(ev))
			metrics.RecordAlert(err == nil)
			if err != nil {
				h.logger.WithError(err).WithField("external_id", ev.ExternalID).Error("Could not deliver alert")
			}
		}
	}
}

func (h *AlertHandler) enqueue(ev domain.StatusEvent) {
	if !ShouldAlert(ev) {
		return
	}

	select {
	case h.queue <- ev:
	default:
		metrics.RecordAlert(false)
		h.logger.WithField("external_id", ev.ExternalID).Warn("Alert queue full, dropping alert")
	}
}

// ShouldAlert reports whether a transition is worth a chat message
func ShouldAlert(ev domain.StatusEvent) bool {
	switch ev.Current {
	case domain.StatusLOS, domain.StatusPowerFail:
		return true
	case domain.StatusOnline:
		return ev.Previous == domain.StatusLOS || ev.Previous == domain.StatusPowerFail
	default:
		return false
	}
}

// FormatAlert renders a transition as an HTML chat message
func FormatAlert(ev domain.StatusEvent) string {
	at := ev.ObservedAt.Format("02/01/2006 15:04:05")
	name := html.EscapeString(ev.Name)
	id := html.EscapeString(ev.ExternalID)
	box := html.EscapeString(boxLabel(ev.ODBName))

	if ev.Current == domain.StatusOnline {
		return fmt.Sprintf(MSG_ALERT_RECOVERED, name, name, id, box, ev.Previous, at)
	}

	olt := ev.Topology.OLTName
	if olt == "" {
		olt = ev.Topology.OLTID
	}
	return fmt.Sprintf(MSG_ALERT_DOWN,
		ev.Current, box,
		name, id,
		box,
		html.EscapeString(olt), ev.Topology.Board, ev.Topology.Port,
		ev.Previous,
		at,
	)
}
