package messaging

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

func toKafka(msg OutgoingMessage, now time.Time) kafka.Message {
	km := kafka.Message{Value: msg.Body, Time: now}
	for k, v := range msg.Headers {
		if k == "" {
			continue
		}
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km
}

// fromKafka keeps the first value of a repeated header key.
func fromKafka(m kafka.Message, attempt int) Message {
	var headers Headers
	if len(m.Headers) > 0 {
		headers = make(Headers, len(m.Headers))
		for _, h := range m.Headers {
			if _, ok := headers[h.Key]; ok {
				continue
			}
			headers[h.Key] = string(h.Value)
		}
	}

	return Message{
		ID:        fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		Topic:     m.Topic,
		Body:      m.Value,
		Headers:   headers,
		Timestamp: m.Time,
		Attempts:  attempt,
	}
}
