package messaging

import (
	"maps"

	"cloud.google.com/go/pubsub/v2"
)

func toPubSub(msg OutgoingMessage) *pubsub.Message {
	return &pubsub.Message{Data: msg.Body, Attributes: maps.Clone(msg.Headers)}
}

func fromPubSub(topic string, m *pubsub.Message, attempt int) Message {
	var headers Headers
	if len(m.Attributes) > 0 {
		headers = Headers(maps.Clone(m.Attributes))
	}

	return Message{
		ID:        m.ID,
		Topic:     topic,
		Body:      m.Data,
		Headers:   headers,
		Timestamp: m.PublishTime,
		Attempts:  attempt,
	}
}
