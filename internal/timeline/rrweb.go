// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package timeline

// rrweb event types. DOMContentLoaded (0), Load (1), Custom (5) and Plugin
// (6) carry nothing for the timeline.
const (
	eventFullSnapshot        = 2
	eventIncrementalSnapshot = 3
	eventMeta                = 4
)

// Incremental snapshot sources.
const (
	sourceMutation         = 0
	sourceMouseInteraction = 2
	sourceScroll           = 3
	sourceViewportResize   = 4
	sourceInput            = 5
)

// Mouse interaction types that count as a completed click.
const (
	interactionMouseUp  = 0
	interactionTouchEnd = 9
)

// Serialized node types used here.
const (
	nodeElement = 2
	nodeText    = 3
)

// serializedNode is a node as captured in snapshots and mutation adds.
type serializedNode struct {
	Type        int                    `json:"type"`
	ID          *int                   `json:"id"`
	TagName     string                 `json:"tagName"`
	Attributes  map[string]interface{} `json:"attributes"`
	ChildNodes  []serializedNode       `json:"childNodes"`
	TextContent string                 `json:"textContent"`
}

type fullSnapshotData struct {
	Node *serializedNode `json:"node"`
}

type metaData struct {
	Href   string `json:"href"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// incrementalData carries the fields of every incremental source this
// package reads. Unused fields stay zero.
type incrementalData struct {
	Source *int `json:"source"`

	// mouse interaction, scroll, input
	Type *int `json:"type"`
	ID   *int `json:"id"`

	// viewport resize
	Width  int `json:"width"`
	Height int `json:"height"`

	// input
	Text      *string `json:"text"`
	IsChecked *bool   `json:"isChecked"`

	// mutation
	Texts      []textMutation      `json:"texts"`
	Attributes []attributeMutation `json:"attributes"`
	Removes    []removeMutation    `json:"removes"`
	Adds       []addMutation       `json:"adds"`
}

type textMutation struct {
	ID    *int    `json:"id"`
	Value *string `json:"value"`
}

type attributeMutation struct {
	ID         *int                   `json:"id"`
	Attributes map[string]interface{} `json:"attributes"`
}

type removeMutation struct {
	ParentID *int `json:"parentId"`
	ID       *int `json:"id"`
}

type addMutation struct {
	ParentID *int           `json:"parentId"`
	NextID   *int           `json:"nextId"`
	Node     serializedNode `json:"node"`
}
