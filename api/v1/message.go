package api_v1

import (
	"encoding/json"
)

// KillMessage is the reserved payload that ends listening on a channel. It is
// published verbatim, never JSON encoded.
const KillMessage string = "WFKILL"

// Message is the inbound wire shape published on a channel.
type Message struct {
	Event   string         `json:"event"`
	Context map[string]any `json:"context"`
}

func IsKillMessage(payload string) bool {
	return payload == KillMessage
}

// ParseMessage decodes a transport payload. Anything that is not a JSON
// object carrying a non-empty string event and an object context is a
// MalformedMessage.
func ParseMessage(payload string) (*Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, WrapError(MALFORMED_MESSAGE, err, "payload is not a json object")
	}
	eventRaw, ok := raw["event"]
	if !ok {
		return nil, NewError(MALFORMED_MESSAGE, "missing event")
	}
	var event string
	if err := json.Unmarshal(eventRaw, &event); err != nil || len(event) == 0 {
		return nil, NewError(MALFORMED_MESSAGE, "event must be a non-empty string")
	}
	contextRaw, ok := raw["context"]
	if !ok {
		return nil, NewError(MALFORMED_MESSAGE, "missing context")
	}
	var ctx map[string]any
	if err := json.Unmarshal(contextRaw, &ctx); err != nil || ctx == nil {
		return nil, NewError(MALFORMED_MESSAGE, "context must be an object")
	}
	return &Message{Event: event, Context: ctx}, nil
}

func EncodeMessage(event string, context map[string]any) (string, error) {
	if len(event) == 0 {
		return "", NewError(VALIDATION_ERROR, "event must be a non-empty string")
	}
	if context == nil {
		context = map[string]any{}
	}
	data, err := json.Marshal(Message{Event: event, Context: context})
	if err != nil {
		return "", WrapError(VALIDATION_ERROR, err, "context is not serializable")
	}
	return string(data), nil
}
