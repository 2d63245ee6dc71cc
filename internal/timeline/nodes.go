// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package timeline

import (
	"fmt"
	"strings"
)

const noParent = -1

// node mirrors one captured DOM node. Parent and children are ids into the
// owning nodeTable, never pointers.
type node struct {
	id       int
	nodeType int
	tag      string
	attrs    map[string]string
	parent   int
	text     string
	// textChildren is the joined text of direct text children.
	textChildren string
	children     []int
}

// nodeTable is the shadow DOM for one Generate call.
type nodeTable struct {
	nodes map[int]*node
}

func newNodeTable() *nodeTable {
	return &nodeTable{nodes: make(map[int]*node)}
}

func (t *nodeTable) reset() {
	t.nodes = make(map[int]*node)
}

func (t *nodeTable) get(id int) *node {
	return t.nodes[id]
}

// register adds sn and its subtree under parentID. Nodes without an id are
// skipped along with their subtrees.
func (t *nodeTable) register(sn *serializedNode, parentID int, nextID *int) {
	if sn == nil || sn.ID == nil {
		return
	}
	id := *sn.ID

	if old, ok := t.nodes[id]; ok {
		t.unlink(old)
	}

	n := &node{
		id:       id,
		nodeType: sn.Type,
		tag:      strings.ToLower(sn.TagName),
		attrs:    stringAttrs(sn.Attributes),
		parent:   parentID,
		text:     sn.TextContent,
	}
	t.nodes[id] = n

	if parent := t.nodes[parentID]; parent != nil {
		parent.children = insertBefore(parent.children, id, nextID)
	}

	for i := range sn.ChildNodes {
		t.register(&sn.ChildNodes[i], id, nil)
	}

	if n.nodeType == nodeElement {
		t.refreshTextChildren(n)
	}
	if parent := t.nodes[parentID]; parent != nil && n.nodeType == nodeText {
		t.refreshTextChildren(parent)
	}
}

// remove deletes one entry. Descendants stay in the table, orphaned.
func (t *nodeTable) remove(id int) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	t.unlink(n)
	delete(t.nodes, id)
}

func (t *nodeTable) setText(id int, value string) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	n.text = value
	if parent := t.nodes[n.parent]; parent != nil {
		t.refreshTextChildren(parent)
	}
}

func (t *nodeTable) setAttributes(id int, attrs map[string]interface{}) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		if v == nil {
			delete(n.attrs, k)
			continue
		}
		if str, ok := attrString(v); ok {
			n.attrs[k] = str
		}
	}
}

func (t *nodeTable) unlink(n *node) {
	parent := t.nodes[n.parent]
	if parent == nil {
		return
	}
	for i, cid := range parent.children {
		if cid == n.id {
			parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
			break
		}
	}
	if n.nodeType == nodeText {
		t.refreshTextChildren(parent)
	}
}

func (t *nodeTable) refreshTextChildren(n *node) {
	var parts []string
	for _, cid := range n.children {
		c := t.nodes[cid]
		if c != nil && c.nodeType == nodeText && c.text != "" {
			parts = append(parts, c.text)
		}
	}
	n.textChildren = strings.Join(parts, " ")
}

func insertBefore(children []int, id int, nextID *int) []int {
	if nextID != nil {
		for i, cid := range children {
			if cid == *nextID {
				children = append(children, 0)
				copy(children[i+1:], children[i:])
				children[i] = id
				return children
			}
		}
	}
	return append(children, id)
}

func stringAttrs(raw map[string]interface{}) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := attrString(v); ok {
			attrs[k] = str
		}
	}
	return attrs
}

// attrString converts a scalar attribute value. Objects and arrays, such as
// rrweb's style diffs, report false.
func attrString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case float64:
		return fmt.Sprintf("%g", val), true
	default:
		return "", false
	}
}
