package model

import (
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityUrgent  Priority = "urgent"
)

// ParsePriority accepts the names above, "max" as an alias of urgent, or the numeric levels 1..5.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "3":
		return PriorityDefault, nil
	case "min", "1":
		return PriorityMin, nil
	case "low", "2":
		return PriorityLow, nil
	case "high", "4":
		return PriorityHigh, nil
	case "urgent", "max", "5":
		return PriorityUrgent, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Level is the numeric ntfy priority.
func (p Priority) Level() int {
	switch p {
	case PriorityMin:
		return 1
	case PriorityLow:
		return 2
	case PriorityHigh:
		return 4
	case PriorityUrgent:
		return 5
	default:
		return 3
	}
}

// NotificationMessage is published at most once per run.
type NotificationMessage struct {
	Topic    string
	Title    string
	Body     string
	Priority Priority
	Tags     []string
	Delay    string // ntfy X-Delay; empty sends immediately
}
