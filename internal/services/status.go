package services

import (
	"strings"

	"onu-map/internal/domain"
)

type statusRule struct {
	name   string
	match  func(raw string) bool
	status domain.Status
}

func exact(word string) func(string) bool {
	return func(raw string) bool {
		return raw == word
	}
}

func containsAny(words ...string) func(string) bool {
	return func(raw string) bool {
		for _, w := range words {
			if strings.Contains(raw, w) {
				return true
			}
		}
		return false
	}
}

// statusRules is evaluated top down against the lowercased, trimmed raw
// status. Exact rules come before substring rules, and power before los
// so "power loss" is a power failure. The device's last down cause is
// never consulted.
var statusRules = []statusRule{
	{name: "online", match: exact("online"), status: domain.StatusOnline},
	{name: "offline", match: exact("offline"), status: domain.StatusOffline},
	{name: "power", match: containsAny("power", "dying gasp", "dying-gasp"), status: domain.StatusPowerFail},
	{name: "los", match: containsAny("los"), status: domain.StatusLOS},
}

// ClassifyStatus maps a raw upstream status to a normalized status.
// Unrecognized and empty input is Offline.
func ClassifyStatus(raw string) domain.Status {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return domain.StatusOffline
	}

	for _, rule := range statusRules {
		if rule.match(normalized) {
			return rule.status
		}
	}
	return domain.StatusOffline
}
