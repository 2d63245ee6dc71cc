// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxTextDepth   = 3
	maxLabelRunes  = 40
	maxParentHops  = 5
	unknownElement = "element"
)

// presentationalTags are wrappers whose label is usually their parent's.
var presentationalTags = map[string]bool{
	"span":   true,
	"div":    true,
	"i":      true,
	"svg":    true,
	"path":   true,
	"g":      true,
	"b":      true,
	"strong": true,
	"rect":   true,
	"circle": true,
}

// Text under these tags is never visible.
var hiddenTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// generatedClass matches class names emitted by CSS-in-JS and build tools.
var generatedClass = regexp.MustCompile(`^(?:css|sc|jsx|emotion|svelte|styled|chakra|mui|tw)-|^_`)

// label resolves a node id to a short human-readable description.
func (t *nodeTable) label(id int) string {
	return t.resolve(id, 0)
}

func (t *nodeTable) resolve(id, hops int) string {
	n := t.get(id)
	if n == nil {
		return unknownElement
	}

	if text := t.visibleText(n); text != "" {
		return strconv.Quote(text)
	}

	for _, attr := range []string{"aria-label", "title", "data-testid"} {
		if v := attrValue(n, attr); v != "" {
			return strconv.Quote(v)
		}
	}
	for _, attr := range []string{"placeholder", "name"} {
		if v := attrValue(n, attr); v != "" {
			return strconv.Quote(v) + " field"
		}
	}
	if v := attrValue(n, "alt"); v != "" {
		return strconv.Quote(v) + " image"
	}

	if presentationalTags[n.tag] && hops < maxParentHops {
		if parent := t.get(n.parent); parent != nil {
			return t.resolve(parent.id, hops+1)
		}
	}

	if v := attrValue(n, "id"); v != "" {
		return "#" + v
	}
	return tagLabel(n)
}

// visibleText collects text from n and its descendants, collapsed and
// truncated.
func (t *nodeTable) visibleText(n *node) string {
	var b strings.Builder
	t.collectText(n, 0, &b)
	return truncateRunes(strings.Join(strings.Fields(b.String()), " "), maxLabelRunes)
}

func (t *nodeTable) collectText(n *node, depth int, b *strings.Builder) {
	if n.nodeType == nodeText {
		b.WriteString(n.text)
		b.WriteByte(' ')
		return
	}
	if hiddenTextTags[n.tag] {
		return
	}
	if depth == maxTextDepth {
		b.WriteString(n.textChildren)
		b.WriteByte(' ')
		return
	}
	for _, cid := range n.children {
		if c := t.get(cid); c != nil {
			t.collectText(c, depth+1, b)
		}
	}
}

func tagLabel(n *node) string {
	tag := n.tag
	if tag == "" {
		tag = unknownElement
	}
	for _, class := range strings.Fields(n.attrs["class"]) {
		if !generatedClass.MatchString(class) {
			return tag + "." + class
		}
	}
	return tag
}

func attrValue(n *node, name string) string {
	return strings.Join(strings.Fields(n.attrs[name]), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
