package transform

import (
	"go/ast"
	"strconv"
	"strings"
)

// Marker names, written as doc-comment directives in the style of
// projectcontour's `+kubebuilder:...` markers — the idiomatic Go
// rendition of Prime Mover's Java annotations (spec §6 "Annotations").
const (
	markerEntity          = "entity"
	markerEvent           = "event"
	markerNonEvent        = "nonevent"
	markerBlocking        = "blocking"
	markerAllMethodsMark  = "allmethods"
	markerTransformed     = "transformed"
)

const markerPrefix = "+primemover:"

// rawMarker is one parsed "+primemover:key[:value]" directive.
// parseMarkers also accepts "=" in place of the ":" and never fills in
// arg.
type rawMarker struct {
	key   string
	value string
	arg   string
}

// parseMarkers extracts every +primemover directive from a doc comment
// group. A type or method may carry more than one.
func parseMarkers(doc *ast.CommentGroup) []rawMarker {
	if doc == nil {
		return nil
	}
	var out []rawMarker
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, markerPrefix) {
			continue
		}
		body := strings.TrimPrefix(text, markerPrefix)
		key := body
		value := ""
		if idx := strings.IndexAny(body, ":="); idx >= 0 {
			key = body[:idx]
			value = body[idx+1:]
		}
		out = append(out, rawMarker{key: key, value: strings.TrimSpace(value)})
	}
	return out
}

// hasMarker reports whether markers contains one with the given key.
func hasMarker(markers []rawMarker, key string) bool {
	for _, m := range markers {
		if m.key == key {
			return true
		}
	}
	return false
}

// markerValue returns the value of the first marker with the given
// key, and whether it was present.
func markerValue(markers []rawMarker, key string) (string, bool) {
	for _, m := range markers {
		if m.key == key {
			return m.value, true
		}
	}
	return "", false
}

// explicitOrdinal parses an explicit ordinal from an "event" marker's
// value, e.g. "+primemover:event:7" (spec §4.3 rule 1).
func explicitOrdinal(markers []rawMarker) (int32, bool) {
	v, ok := markerValue(markers, markerEvent)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// entityInterfaces parses the interface list carried by an "entity"
// marker, e.g. "+primemover:entity:Producer,Consumer".
func entityInterfaces(markers []rawMarker) []string {
	v, ok := markerValue(markers, markerEntity)
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
