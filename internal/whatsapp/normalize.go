package whatsapp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize extracts the first message at entry[0].changes[0].value.messages[0].
//
// ok is false when the event carries no message (delivery and read status
// updates); that is a normal outcome, not an error. An error is returned
// only for bodies that are not valid JSON or whose first message fails
// schema validation. Normalize is pure: it does not retain or modify body.
func Normalize(body []byte) (msg Message, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Message{}, false, fmt.Errorf("decode webhook payload: %w", err)
	}

	raw, found := firstMessage(&env)
	if !found {
		return Message{}, false, nil
	}

	if err := validateMessage(raw); err != nil {
		return Message{}, false, err
	}

	var in InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return Message{}, false, fmt.Errorf("decode message: %w", err)
	}

	return FromInbound(&in), true, nil
}

// FromInbound builds the normalized record from a decoded message.
func FromInbound(in *InboundMessage) Message {
	return Message{
		Phone:       NormalizePhone(in.From),
		Text:        MessageText(in),
		WAMessageID: in.ID,
		Timestamp:   in.Timestamp,
	}
}

func firstMessage(env *Envelope) (json.RawMessage, bool) {
	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return nil, false
	}
	messages := env.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return nil, false
	}
	raw := messages[0]
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// NormalizePhone returns the sender id in +E.164 form. WhatsApp sends
// wa_id without the leading plus.
func NormalizePhone(from string) string {
	if strings.HasPrefix(from, "+") {
		return from
	}
	return "+" + from
}

// MessageText derives the text forwarded downstream from the message type.
//
//	text        → text.body
//	button      → button.text, then button.payload
//	interactive → first non-empty of button_reply.title, button_reply.id,
//	              list_reply.title, list_reply.id
//	other       → "[<type> received]"
//
// Missing fields fall back to "".
func MessageText(in *InboundMessage) string {
	switch in.Type {
	case TypeText:
		if in.Text == nil {
			return ""
		}
		return firstPresent(in.Text.Body)
	case TypeButton:
		if in.Button == nil {
			return ""
		}
		return firstPresent(in.Button.Text, in.Button.Payload)
	case TypeInteractive:
		if in.Interactive == nil {
			return ""
		}
		var candidates []*string
		if r := in.Interactive.ButtonReply; r != nil {
			candidates = append(candidates, r.Title, r.ID)
		}
		if r := in.Interactive.ListReply; r != nil {
			candidates = append(candidates, r.Title, r.ID)
		}
		return firstNonEmpty(candidates...)
	default:
		return "[" + in.Type + " received]"
	}
}

// firstPresent returns the first non-nil value, keeping explicit empty strings.
func firstPresent(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
