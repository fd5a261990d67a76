package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto    Format = iota // pick from the output path extension
	FormatText                  // human-readable text
	FormatNDJSON                // newline-delimited JSON
	FormatChrome                // Chrome trace-event JSON array
	FormatMsgpack               // stream of msgpack-encoded records
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson":
		return FormatNDJSON, nil
	case "chrome":
		return FormatChrome, nil
	case "msgpack":
		return FormatMsgpack, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson|chrome|msgpack)", s)
	}
}

// FormatForPath picks a format from the output file extension.
// Stderr ("-" or empty) always gets text.
func FormatForPath(path string) Format {
	switch {
	case path == "" || path == "-":
		return FormatText
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	case strings.HasSuffix(path, ".msgpack"), strings.HasSuffix(path, ".mp"):
		return FormatMsgpack
	default:
		return FormatText
	}
}

// record is the wire shape shared by the NDJSON and msgpack encodings.
type record struct {
	Time     string            `json:"time" msgpack:"time"`
	Seq      uint64            `json:"seq" msgpack:"seq"`
	Kind     string            `json:"kind" msgpack:"kind"`
	Scope    string            `json:"scope" msgpack:"scope"`
	SpanID   uint64            `json:"span_id" msgpack:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty" msgpack:"gid,omitempty"`
	Name     string            `json:"name" msgpack:"name"`
	Detail   string            `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

func toRecord(ev *Event) record {
	return record{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}
}

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatChrome:
		return formatChrome(ev)
	case FormatMsgpack:
		return formatMsgpack(ev)
	default:
		return formatText(ev)
	}
}

func formatNDJSON(ev *Event) []byte {
	data, _ := json.Marshal(toRecord(ev))
	return append(data, '\n')
}

func formatMsgpack(ev *Event) []byte {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(toRecord(ev)); err != nil {
		return nil
	}
	return buf.Bytes()
}

// formatChrome emits one element of the Chrome trace-event "traceEvents" array.
func formatChrome(ev *Event) []byte {
	type chromeEvent struct {
		Name  string            `json:"name"`
		Cat   string            `json:"cat"`
		Ph    string            `json:"ph"`
		Ts    int64             `json:"ts"`
		Pid   int               `json:"pid"`
		Tid   uint64            `json:"tid"`
		Scope string            `json:"s,omitempty"`
		Args  map[string]string `json:"args,omitempty"`
	}
	ph := "i"
	scope := "t"
	switch ev.Kind {
	case KindSpanBegin:
		ph, scope = "B", ""
	case KindSpanEnd:
		ph, scope = "E", ""
	}
	args := ev.Extra
	if ev.Detail != "" {
		args = make(map[string]string, len(ev.Extra)+1)
		for k, v := range ev.Extra {
			args[k] = v
		}
		args["detail"] = ev.Detail
	}
	data, _ := json.Marshal(chromeEvent{
		Name:  ev.Name,
		Cat:   ev.Scope.String(),
		Ph:    ph,
		Ts:    ev.Time.UnixMicro(),
		Pid:   1,
		Tid:   ev.GID,
		Scope: scope,
		Args:  args,
	})
	return data
}

// formatText formats an event as human-readable text.
// Format: [hh:mm:ss.mmm] [indent]→/← name (detail) {k=v}
func formatText(ev *Event) []byte {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(ev.Time.Format("15:04:05.000"))
	sb.WriteString("] ")

	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}

	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ") // →
	case KindSpanEnd:
		sb.WriteString("← ") // ←
	case KindPoint:
		sb.WriteString("• ") // •
	case KindHeartbeat:
		sb.WriteString("♡ ") // ♡
	}

	sb.WriteString(ev.Name)

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(ev.Extra[k])
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
