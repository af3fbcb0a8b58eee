package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/logger"

	"github.com/gookit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu     sync.Mutex
	sent   []*domain.MessageResponse
	typing []int64
	fail   error
}

func newOutbox(em *event.Manager) *outbox {
	o := &outbox{}
	em.On(domain.EventSendMessage, event.ListenerFunc(func(e event.Event) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.fail != nil {
			return o.fail
		}
		o.sent = append(o.sent, e.Get("response").(*domain.MessageResponse))
		return nil
	}))
	em.On(domain.EventSendTyping, event.ListenerFunc(func(e event.Event) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.typing = append(o.typing, e.Get("chatID").(int64))
		return nil
	}))
	return o
}

func (o *outbox) messages() []*domain.MessageResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*domain.MessageResponse(nil), o.sent...)
}

type fakeMonitor struct {
	stats    *domain.StatsSummary
	statsErr error
	recent   domain.RecentEvents
	quota    domain.QuotaStatus
}

func (f *fakeMonitor) Statistics(context.Context, domain.Filters) (*domain.StatsSummary, error) {
	return f.stats, f.statsErr
}

func (f *fakeMonitor) RecentEvents() domain.RecentEvents { return f.recent }

func (f *fakeMonitor) QuotaStatus() domain.QuotaStatus { return f.quota }

func sendCommand(t *testing.T, em *event.Manager, text string) {
	t.Helper()
	err, _ := em.Fire(domain.EventMessageReceived, event.M{
		"event": &domain.MessageEvent{UserID: 7, ChatID: 42, Message: text},
	})
	require.NoError(t, err)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, "/status", parseCommand("/status"))
	assert.Equal(t, "/status", parseCommand("  /Status@onu_map_bot extra"))
	assert.Equal(t, "", parseCommand("   "))
	assert.Equal(t, "hello", parseCommand("hello there"))
}

func TestStatusCommand(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	monitor := &fakeMonitor{stats: &domain.StatsSummary{
		Total:        4,
		WithLocation: 3,
		ByStatus: map[domain.Status]int{
			domain.StatusOnline:    2,
			domain.StatusLOS:       1,
			domain.StatusPowerFail: 0,
			domain.StatusOffline:   1,
		},
	}}
	NewMessageHandler(em, monitor, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "/status")

	sent := out.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.True(t, sent[0].HTML)
	assert.Contains(t, sent[0].Text, "Online: 2")
	assert.Contains(t, sent[0].Text, "LOS: 1")
	assert.Contains(t, sent[0].Text, "PowerFail: 0")
	assert.Contains(t, sent[0].Text, "Total: 4 (3 on the map)")
	assert.Equal(t, []int64{42}, out.typing)
}

func TestStatusCommandQuotaExceeded(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	monitor := &fakeMonitor{statsErr: domain.QuotaExceeded("details", 45)}
	NewMessageHandler(em, monitor, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "/status")

	sent := out.messages()
	require.Len(t, sent, 1)
	assert.False(t, sent[0].HTML)
	assert.Contains(t, sent[0].Text, "try again in 45 min")
}

func TestStatusCommandUpstreamFailure(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	monitor := &fakeMonitor{statsErr: domain.NewError(domain.KindUpstreamTransport, "x", "", errors.New("timeout"))}
	NewMessageHandler(em, monitor, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "/status")

	sent := out.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "upstream_transport")
}

func TestEventsCommand(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)

	observed := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	var los []domain.StatusEvent
	for i := 0; i < 7; i++ {
		los = append(los, domain.StatusEvent{
			ExternalID: "A" + string(rune('0'+i)),
			Name:       "client <" + string(rune('0'+i)) + ">",
			ODBName:    "B1",
			Current:    domain.StatusLOS,
			ObservedAt: observed,
		})
	}
	monitor := &fakeMonitor{recent: domain.RecentEvents{LOS: los}}
	NewMessageHandler(em, monitor, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "/events")

	sent := out.messages()
	require.Len(t, sent, 1)
	text := sent[0].Text
	assert.Contains(t, text, "10/06 09:30 client &lt;0&gt; (A0) box B1")
	assert.Contains(t, text, "(A4)")
	assert.NotContains(t, text, "(A5)")
	assert.Contains(t, text, "none recorded")
}

func TestQuotaCommand(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)

	zero, three := 0, 3
	monitor := &fakeMonitor{quota: domain.QuotaStatus{
		"details":  {Limit: 3, Used: 3, Remaining: &zero, ResetInMinutes: 12},
		"gps":      {Limit: 3, Used: 0, Remaining: &three},
		"standard": {},
	}}
	NewMessageHandler(em, monitor, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "/quota")

	sent := out.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "details: 3/3 used, 0 left, frees in 12 min\ngps: 0/3 used, 3 left\nstandard: unrestricted")
}

func TestUnknownCommandSendsHelp(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	NewMessageHandler(em, &fakeMonitor{}, logger.Discard()).RegisterEventListeners()

	sendCommand(t, em, "hi")

	sent := out.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, MSG_HELP, sent[0].Text)
}

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		previous, current domain.Status
		want              bool
	}{
		{domain.StatusOnline, domain.StatusLOS, true},
		{domain.StatusOffline, domain.StatusPowerFail, true},
		{domain.StatusLOS, domain.StatusOnline, true},
		{domain.StatusPowerFail, domain.StatusOnline, true},
		{domain.StatusOffline, domain.StatusOnline, false},
		{domain.StatusOnline, domain.StatusOffline, false},
		{domain.StatusLOS, domain.StatusOffline, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.previous)+"->"+string(tt.current), func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(domain.StatusEvent{Previous: tt.previous, Current: tt.current}))
		})
	}
}

func TestFormatAlert(t *testing.T) {
	ev := domain.StatusEvent{
		ExternalID: "HWTC01",
		Name:       "Ana & Co",
		ODBName:    "CTO-12",
		Topology:   domain.Topology{OLTID: "1", OLTName: "OLT-Centro", Board: "2", Port: "7"},
		Previous:   domain.StatusOnline,
		Current:    domain.StatusLOS,
		ObservedAt: time.Date(2024, 6, 10, 9, 30, 5, 0, time.UTC),
	}

	text := FormatAlert(ev)
	assert.Contains(t, text, "<b>LOS</b> on CTO-12")
	assert.Contains(t, text, "ONU: Ana &amp; Co (HWTC01)")
	assert.Contains(t, text, "OLT OLT-Centro board 2 port 7")
	assert.Contains(t, text, "At: 10/06/2024 09:30:05")

	ev.Previous, ev.Current = domain.StatusLOS, domain.StatusOnline
	text = FormatAlert(ev)
	assert.Contains(t, text, "<b>Recovered</b> Ana &amp; Co")
	assert.Contains(t, text, "Was: LOS")
}

func TestAlertHandlerDeliversQueuedAlerts(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	alerts := NewAlertHandler(em, -100123, logger.Discard())
	alerts.RegisterEventListeners()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- alerts.Serve(ctx) }()

	for _, ev := range []*domain.StatusEvent{
		{ExternalID: "1", Previous: domain.StatusOnline, Current: domain.StatusLOS},
		{ExternalID: "2", Previous: domain.StatusOnline, Current: domain.StatusOffline},
		{ExternalID: "3", Previous: domain.StatusPowerFail, Current: domain.StatusOnline},
	} {
		err, _ := em.Fire(domain.EventStatusChanged, event.M{"event": ev})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return len(out.messages()) == 2
	}, time.Second, 5*time.Millisecond)

	sent := out.messages()
	assert.Equal(t, int64(-100123), sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "(1)")
	assert.Contains(t, sent[1].Text, "Recovered")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestAlertHandlerSurvivesDeliveryFailure(t *testing.T) {
	em := event.NewManager("test")
	out := newOutbox(em)
	out.fail = errors.New("chat not found")

	alerts := NewAlertHandler(em, 1, logger.Discard())
	alerts.RegisterEventListeners()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = alerts.Serve(ctx) }()

	err, _ := em.Fire(domain.EventStatusChanged, event.M{"event": &domain.StatusEvent{Current: domain.StatusLOS}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(alerts.queue) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, out.messages())
}
