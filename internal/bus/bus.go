// Package bus carries raw server frames from the network goroutine to the
// single event consumer.
package bus

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// TopicFrames is the topic raw inbound frames are published on.
const TopicFrames = "rpsboard.frames"

// New creates an in-process pub/sub. Publish blocks until the consumer acks,
// so frames are handed over strictly in wire order.
func New(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            0,
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NewSlogLogger(logger))
}

// PublishFrame publishes one raw frame.
func PublishFrame(pub message.Publisher, frame []byte) error {
	msg := message.NewMessage(uuid.NewString(), frame)
	return pub.Publish(TopicFrames, msg)
}
