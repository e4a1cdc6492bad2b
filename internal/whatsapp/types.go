// Package whatsapp models the WhatsApp Cloud API webhook payload and
// reduces an inbound message event to the small record forwarded downstream.
package whatsapp

import "encoding/json"

// Envelope is the top-level webhook body:
// {"object":"whatsapp_business_account","entry":[{"changes":[{"value":{...}}]}]}
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business account entry.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries the field name ("messages") and its value.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds either inbound messages or status updates.
// Messages stay raw until the first one has passed schema validation.
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Messages         []json.RawMessage `json:"messages"`
	Statuses         []json.RawMessage `json:"statuses"`
}

// InboundMessage is a single message object. Exactly one of the content
// pointers is expected to match Type; a nil pointer means the key was
// absent or null.
type InboundMessage struct {
	From      string          `json:"from"`
	ID        string          `json:"id"`
	Timestamp json.RawMessage `json:"timestamp"`
	Type      string          `json:"type"`

	Text        *TextContent        `json:"text,omitempty"`
	Button      *ButtonContent      `json:"button,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
}

// Message types with dedicated text extraction.
const (
	TypeText        = "text"
	TypeButton      = "button"
	TypeInteractive = "interactive"
)

// TextContent is the body of a "text" message.
type TextContent struct {
	Body *string `json:"body"`
}

// ButtonContent is a quick-reply button press on a template message.
type ButtonContent struct {
	Text    *string `json:"text"`
	Payload *string `json:"payload"`
}

// InteractiveContent is a reply to an interactive button or list message.
type InteractiveContent struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply identifies the chosen button or list row.
type Reply struct {
	ID    *string `json:"id"`
	Title *string `json:"title"`
}

// Message is the normalized record sent to the workflow engine.
// WAMessageID and Timestamp are omitted when the source lacked them.
type Message struct {
	Phone       string          `json:"phone"`
	Text        string          `json:"text"`
	WAMessageID string          `json:"waMessageId,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
}
