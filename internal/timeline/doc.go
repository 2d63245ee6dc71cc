// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package timeline turns a merged rrweb event stream into a short, readable
narrative of what the visitor did.

# Overview

Generate walks the events once, in order:

 1. Full snapshots and mutations maintain a shadow node table, a flat map
    from rrweb node id to tag, attributes, text and parent/child ids.
 2. Interactions that reference a node resolve it to a human label: visible
    text first, then accessibility and test attributes, then the parent of
    presentational wrappers (an icon inside a button), then #id or tag.class.
 3. Each kept event becomes one line prefixed with its offset from the first
    event, e.g. "[00:12.4] Clicked: "Add to cart"".

Typed values pass through MaskPII before they are written.

# Output

	==================================================
	Session duration: 01:05.3
	==================================================
	[00:00.0] Navigated to: https://shop.example.com/
	[00:00.0] Viewport: 1280x720
	[00:00.1] Page Loaded
	[00:03.2] Clicked: "Add to cart"
	==================================================
	Events: 412 | Timeline entries: 4

An empty event list yields NoEventsMessage instead of a block.

# Guarantees

Generate is pure and deterministic: it performs no I/O, keeps no state
between calls, and returns byte-identical output for identical input.
Malformed events and mutation records are skipped without error.
*/
package timeline
