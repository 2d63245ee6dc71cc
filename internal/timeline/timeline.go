// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package timeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/replayline/internal/models"
)

// NoEventsMessage is returned for a session without events.
const NoEventsMessage = "No events recorded for this session."

const (
	separator = "=================================================="

	// clickDedupWindowMs suppresses a repeated click on the same label.
	clickDedupWindowMs = 300
)

// LineKind classifies a timeline line.
type LineKind string

// Line kinds.
const (
	KindNavigation LineKind = "navigation"
	KindViewport   LineKind = "viewport"
	KindPageLoad   LineKind = "page_load"
	KindClick      LineKind = "click"
	KindScroll     LineKind = "scroll"
	KindInput      LineKind = "input"
)

// Line is one emitted timeline entry.
type Line struct {
	OffsetMs int64    `json:"offset_ms"`
	Kind     LineKind `json:"kind"`
	Text     string   `json:"text"`
}

// String formats the line with its offset prefix.
func (l Line) String() string {
	return "[" + FormatOffset(l.OffsetMs) + "] " + l.Text
}

// Stats summarizes a Generate call.
type Stats struct {
	Events           int   `json:"events"`
	Lines            int   `json:"lines"`
	Malformed        int   `json:"malformed"`
	SuppressedClicks int   `json:"suppressed_clicks"`
	DurationMs       int64 `json:"duration_ms"`
}

// Result is the narrative and its structured lines.
type Result struct {
	Text  string `json:"text"`
	Lines []Line `json:"lines"`
	Stats Stats  `json:"stats"`
}

// GenerateTimeline returns the narrative text for events.
func GenerateTimeline(events []models.Event) string {
	return Generate(events).Text
}

// Generate builds the timeline for events, which should be sorted by
// timestamp.
func Generate(events []models.Event) Result {
	if len(events) == 0 {
		return Result{Text: NoEventsMessage}
	}

	g := &generator{
		nodes: newNodeTable(),
		start: events[0].Timestamp,
	}
	for i := range events {
		if !g.apply(&events[i]) {
			g.stats.Malformed++
		}
	}

	g.stats.Events = len(events)
	g.stats.Lines = len(g.lines)
	g.stats.DurationMs = events[len(events)-1].Timestamp - g.start
	if g.stats.DurationMs < 0 {
		g.stats.DurationMs = 0
	}

	return Result{
		Text:  render(g.lines, g.stats),
		Lines: g.lines,
		Stats: g.stats,
	}
}

type generator struct {
	nodes *nodeTable
	start int64
	lines []Line
	stats Stats

	lastClickLabel string
	lastClickAt    int64
	haveClick      bool
}

// apply processes one event. It reports false when the event could not be
// decoded.
func (g *generator) apply(e *models.Event) bool {
	switch e.Type {
	case eventMeta:
		var d metaData
		if err := json.Unmarshal(e.Data, &d); err != nil {
			return false
		}
		if d.Href != "" {
			g.emit(e, KindNavigation, "Navigated to: "+d.Href)
		}
		if d.Width > 0 && d.Height > 0 {
			g.emit(e, KindViewport, viewportText(d.Width, d.Height))
		}

	case eventFullSnapshot:
		var d fullSnapshotData
		if err := json.Unmarshal(e.Data, &d); err != nil || d.Node == nil {
			return false
		}
		g.nodes.reset()
		g.nodes.register(d.Node, noParent, nil)
		g.emit(e, KindPageLoad, "Page Loaded")

	case eventIncrementalSnapshot:
		var d incrementalData
		if err := json.Unmarshal(e.Data, &d); err != nil || d.Source == nil {
			return false
		}
		g.applyIncremental(e, &d)
	}
	return true
}

func (g *generator) applyIncremental(e *models.Event, d *incrementalData) {
	switch *d.Source {
	case sourceMutation:
		g.applyMutation(d)

	case sourceMouseInteraction:
		if d.Type == nil || d.ID == nil {
			return
		}
		if *d.Type == interactionMouseUp || *d.Type == interactionTouchEnd {
			g.click(e, g.nodes.label(*d.ID))
		}

	case sourceScroll:
		if n := len(g.lines); n > 0 && g.lines[n-1].Kind == KindScroll {
			return
		}
		g.emit(e, KindScroll, "Scrolled")

	case sourceViewportResize:
		if d.Width > 0 && d.Height > 0 {
			g.emit(e, KindViewport, viewportText(d.Width, d.Height))
		}

	case sourceInput:
		if d.ID == nil {
			return
		}
		g.input(e, *d.ID, d)
	}
}

func (g *generator) applyMutation(d *incrementalData) {
	for _, r := range d.Removes {
		if r.ID != nil {
			g.nodes.remove(*r.ID)
		}
	}
	for i := range d.Adds {
		add := &d.Adds[i]
		if add.ParentID == nil {
			continue
		}
		g.nodes.register(&add.Node, *add.ParentID, add.NextID)
	}
	for _, tm := range d.Texts {
		if tm.ID == nil || tm.Value == nil {
			continue
		}
		g.nodes.setText(*tm.ID, *tm.Value)
	}
	for _, am := range d.Attributes {
		if am.ID == nil {
			continue
		}
		g.nodes.setAttributes(*am.ID, am.Attributes)
	}
}

// click emits a click unless it repeats the previous emitted click's label
// within the dedup window.
func (g *generator) click(e *models.Event, label string) {
	if g.haveClick && label == g.lastClickLabel && e.Timestamp-g.lastClickAt < clickDedupWindowMs {
		g.stats.SuppressedClicks++
		return
	}
	g.lastClickLabel = label
	g.lastClickAt = e.Timestamp
	g.haveClick = true
	g.emit(e, KindClick, "Clicked: "+label)
}

// input emits one line per value change.
func (g *generator) input(e *models.Event, id int, d *incrementalData) {
	label := g.nodes.label(id)

	var text string
	if n := g.nodes.get(id); d.IsChecked != nil && n != nil && isToggle(n) {
		if *d.IsChecked {
			text = "Checked: " + label
		} else {
			text = "Unchecked: " + label
		}
	} else {
		if d.Text == nil {
			return
		}
		text = "Typed " + strconv.Quote(MaskPII(*d.Text, label)) + " in " + label
	}
	g.emit(e, KindInput, text)
}

func (g *generator) emit(e *models.Event, kind LineKind, text string) {
	offset := e.Timestamp - g.start
	if offset < 0 {
		offset = 0
	}
	g.lines = append(g.lines, Line{OffsetMs: offset, Kind: kind, Text: text})
}

func isToggle(n *node) bool {
	switch strings.ToLower(n.attrs["type"]) {
	case "checkbox", "radio":
		return true
	}
	return false
}

func viewportText(w, h int) string {
	return fmt.Sprintf("Viewport: %dx%d", w, h)
}

// FormatOffset renders milliseconds as mm:ss.s, truncating to tenths.
func FormatOffset(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	tenths := ms / 100
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, (tenths%600)/10, tenths%10)
}

func render(lines []Line, stats Stats) string {
	var b strings.Builder
	b.WriteString(separator)
	b.WriteByte('\n')
	b.WriteString("Session duration: ")
	b.WriteString(FormatOffset(stats.DurationMs))
	b.WriteByte('\n')
	b.WriteString(separator)
	b.WriteByte('\n')
	for i := range lines {
		b.WriteString(lines[i].String())
		b.WriteByte('\n')
	}
	b.WriteString(separator)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Events: %d | Timeline entries: %d", stats.Events, stats.Lines)
	return b.String()
}
