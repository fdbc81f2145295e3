package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"archivist/internal/logging"
)

// Record is one decoded log line.
type Record struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	Stage     string
	// Fields holds the remaining attributes.
	Fields map[string]any
	Raw    string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseRecord(line string) (Record, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Record{}, false
	}
	rec := Record{Raw: line}
	take := func(key string) string {
		value, _ := fields[key].(string)
		delete(fields, key)
		return value
	}
	rec.Time = take("ts")
	rec.Level = strings.ToLower(take("level"))
	rec.Message = take("msg")
	rec.Component = take(logging.FieldComponent)
	rec.RunID = take(logging.FieldRunID)
	rec.Stage = take(logging.FieldStage)
	delete(fields, "source")
	rec.Fields = fields
	return rec, true
}

// Filter selects records.
type Filter struct {
	// RunID matches records whose run_id starts with it.
	RunID string
	// MinLevel drops records below the given level.
	MinLevel string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if f.RunID != "" && !strings.HasPrefix(rec.RunID, f.RunID) {
		return false
	}
	if floor, ok := levelRank[strings.ToLower(f.MinLevel)]; ok {
		if rank, known := levelRank[rec.Level]; known && rank < floor {
			return false
		}
	}
	return true
}

// Format renders a record as a single console line with sorted attributes.
func (r Record) Format() string {
	var b strings.Builder
	b.WriteString(r.Time)
	fmt.Fprintf(&b, " %-5s", strings.ToUpper(r.Level))
	if r.Component != "" {
		fmt.Fprintf(&b, " [%s]", r.Component)
	}
	if r.Stage != "" {
		fmt.Fprintf(&b, " %s:", r.Stage)
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
	}
	return b.String()
}
