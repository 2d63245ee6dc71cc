// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package queue

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/replayline/internal/logging"
)

// TopicQueued carries the id of a session that just entered queued.
const TopicQueued = "assets.queued"

// NewPubSub creates the in-process pub/sub used for queue notifications.
func NewPubSub(buffer int64) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)
}

func newQueuedMessage(sessionID string) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), []byte(sessionID))
	msg.Metadata.Set("session_id", sessionID)
	return msg
}
