package messaging

import "encoding/json"

// envelope wraps body and headers for drivers without native headers.
type envelope struct {
	Headers Headers `json:"h,omitempty"`
	Body    []byte  `json:"b"`
}

func encodeEnvelope(msg OutgoingMessage) ([]byte, error) {
	body := msg.Body
	if body == nil {
		body = []byte{}
	}
	return json.Marshal(envelope{Headers: msg.Headers, Body: body})
}

// decodeEnvelope falls back to treating raw as the body when it is not an
// envelope, so plain messages from other producers are still delivered.
func decodeEnvelope(raw []byte) (Headers, []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Body == nil {
		return nil, raw
	}
	return env.Headers, env.Body
}
