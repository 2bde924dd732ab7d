package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gamesort/internal/logging"
)

// Entry is one decoded line of the JSON log file.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	ItemKey   string
	TaskID    string
	Attrs     map[string]any
}

var reservedKeys = map[string]struct{}{
	"ts":                       {},
	"level":                    {},
	"msg":                      {},
	"source":                   {},
	logging.FieldComponent:     {},
	logging.FieldItemKey:       {},
	logging.FieldCorrelationID: {},
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// returned as the message of an entry with no level.
func Parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}
	entry := Entry{
		Time:      stringField(raw, "ts"),
		Level:     stringField(raw, "level"),
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, logging.FieldComponent),
		ItemKey:   stringField(raw, logging.FieldItemKey),
		TaskID:    stringField(raw, logging.FieldCorrelationID),
	}
	for key, value := range raw {
		if _, ok := reservedKeys[key]; ok {
			continue
		}
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]any)
		}
		entry.Attrs[key] = value
	}
	return entry
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

// Filter narrows entries. Zero fields match everything.
type Filter struct {
	MinLevel  string
	Component string
	ItemKey   string
	TaskID    string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Match reports whether entry passes the filter. Item keys compare
// case-insensitively and match on substring so "RJ01234567" finds
// "dlsite/RJ01234567".
func (f Filter) Match(entry Entry) bool {
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		got, known := levelRank[strings.ToLower(entry.Level)]
		if ok && known && got < want {
			return false
		}
	}
	if f.Component != "" && !strings.EqualFold(f.Component, entry.Component) {
		return false
	}
	if f.ItemKey != "" && !strings.Contains(strings.ToLower(entry.ItemKey), strings.ToLower(f.ItemKey)) {
		return false
	}
	if f.TaskID != "" && f.TaskID != entry.TaskID {
		return false
	}
	return true
}

// Format renders entry on one line with attributes in key order.
func Format(entry Entry) string {
	if entry.Level == "" && entry.Time == "" {
		return entry.Message
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s", entry.Time, strings.ToUpper(entry.Level))
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	if entry.ItemKey != "" {
		fmt.Fprintf(&b, " %s", entry.ItemKey)
	}
	fmt.Fprintf(&b, " %s", entry.Message)

	keys := make([]string, 0, len(entry.Attrs))
	for key := range entry.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Attrs[key])
	}
	return b.String()
}
