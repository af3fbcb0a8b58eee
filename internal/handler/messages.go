package handler

import "time"

// Message constants for the bot
const (
	// Command replies
	MSG_HELP = "📡 ONU map monitor\n\n" +
		"/status - device counts by status\n" +
		"/events - latest LOS and power fail transitions\n" +
		"/quota - upstream hourly budgets"

	MSG_STATUS_HEADER = "📊 <b>Network status</b>\n\n"
	MSG_STATUS_LINE   = "%s %s: %d\n"
	MSG_STATUS_FOOTER = "\nTotal: %d (%d on the map)"

	MSG_EVENTS_HEADER = "🕑 <b>Latest %s events</b>\n"
	MSG_EVENTS_EMPTY  = "none recorded\n"
	MSG_EVENT_LINE    = "• %s %s (%s) box %s\n"

	MSG_QUOTA_HEADER       = "⏱ <b>Upstream quota</b>\n\n"
	MSG_QUOTA_LINE         = "%s: %d/%d used, %d left"
	MSG_QUOTA_RESET        = ", frees in %d min"
	MSG_QUOTA_UNRESTRICTED = "%s: unrestricted"

	MSG_UPSTREAM_FAILED = "❌ Could not reach the ONU management API: %s"
	MSG_QUOTA_EXHAUSTED = "⏳ Hourly quota exhausted, try again in %d min."

	// Alerts
	MSG_ALERT_DOWN = "🚨 <b>%s</b> on %s\n\n" +
		"ONU: %s (%s)\n" +
		"Box: %s\n" +
		"OLT %s board %s port %s\n" +
		"Previous status: %s\n" +
		"At: %s"

	MSG_ALERT_RECOVERED = "✅ <b>Recovered</b> %s\n\n" +
		"ONU: %s (%s)\n" +
		"Box: %s\n" +
		"Was: %s\n" +
		"At: %s"
)

// Timeout constants
const (
	TIMEOUT_COMMAND = 30 * time.Second
	TIMEOUT_ALERT   = 15 * time.Second
)

var statusIcons = map[string]string{
	"Online":    "🟢",
	"LOS":       "🔴",
	"PowerFail": "🟠",
	"Offline":   "⚫",
}
