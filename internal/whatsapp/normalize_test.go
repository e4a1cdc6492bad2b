package whatsapp

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope wraps a message object in the WhatsApp webhook structure.
func envelope(message string) []byte {
	return []byte(fmt.Sprintf(`{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "102290129340398",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550783881", "phone_number_id": "106540352242922"},
        "contacts": [{"profile": {"name": "Sheena Nelson"}, "wa_id": "15551234567"}],
        "messages": [%s]
      }
    }]
  }]
}`, message))
}

func TestNormalize_MessageTypes(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantText string
	}{
		{
			name:     "text",
			message:  `{"from":"15551234567","id":"wamid.1","timestamp":"1749416383","type":"text","text":{"body":"Hello"}}`,
			wantText: "Hello",
		},
		{
			name:     "text without body",
			message:  `{"from":"15551234567","id":"wamid.1","timestamp":"1","type":"text","text":{}}`,
			wantText: "",
		},
		{
			name:     "text object missing",
			message:  `{"from":"15551234567","id":"wamid.1","timestamp":"1","type":"text"}`,
			wantText: "",
		},
		{
			name:     "button text",
			message:  `{"from":"15551234567","id":"wamid.2","timestamp":"1","type":"button","button":{"text":"Yes","payload":"BTN_YES"}}`,
			wantText: "Yes",
		},
		{
			name:     "button payload fallback",
			message:  `{"from":"15551234567","id":"wamid.2","timestamp":"1","type":"button","button":{"payload":"BTN1"}}`,
			wantText: "BTN1",
		},
		{
			name:     "button null text falls back",
			message:  `{"from":"15551234567","id":"wamid.2","timestamp":"1","type":"button","button":{"text":null,"payload":"BTN1"}}`,
			wantText: "BTN1",
		},
		{
			name:     "button empty",
			message:  `{"from":"15551234567","id":"wamid.2","timestamp":"1","type":"button","button":{}}`,
			wantText: "",
		},
		{
			name:     "interactive button reply title",
			message:  `{"from":"15551234567","id":"wamid.3","timestamp":"1","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"opt-1","title":"Option 1"}}}`,
			wantText: "Option 1",
		},
		{
			name:     "interactive button reply id",
			message:  `{"from":"15551234567","id":"wamid.3","timestamp":"1","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"opt-1"}}}`,
			wantText: "opt-1",
		},
		{
			name:     "interactive list reply title",
			message:  `{"from":"15551234567","id":"wamid.4","timestamp":"1","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"row-7","title":"Row 7","description":"d"}}}`,
			wantText: "Row 7",
		},
		{
			name:     "interactive list reply id",
			message:  `{"from":"15551234567","id":"wamid.4","timestamp":"1","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"row-7"}}}`,
			wantText: "row-7",
		},
		{
			name:     "interactive empty title skipped",
			message:  `{"from":"15551234567","id":"wamid.4","timestamp":"1","type":"interactive","interactive":{"button_reply":{"title":"","id":"opt-2"}}}`,
			wantText: "opt-2",
		},
		{
			name:     "interactive nothing",
			message:  `{"from":"15551234567","id":"wamid.4","timestamp":"1","type":"interactive","interactive":{"type":"nfm_reply"}}`,
			wantText: "",
		},
		{
			name:     "unsupported location",
			message:  `{"from":"15551234567","id":"wamid.5","timestamp":"1","type":"location","location":{"latitude":1.5,"longitude":2.5}}`,
			wantText: "[location received]",
		},
		{
			name:     "unsupported image",
			message:  `{"from":"15551234567","id":"wamid.6","timestamp":"1","type":"image","image":{"id":"media-1","mime_type":"image/jpeg"}}`,
			wantText: "[image received]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := Normalize(envelope(tt.message))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.wantText, msg.Text)
			assert.Equal(t, "+15551234567", msg.Phone)
		})
	}
}

func TestNormalize_Phone(t *testing.T) {
	msg, ok, err := Normalize(envelope(`{"from":"15551234567","id":"a","timestamp":"1","type":"text","text":{"body":"x"}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "+15551234567", msg.Phone)

	msg, ok, err = Normalize(envelope(`{"from":"+15551234567","id":"a","timestamp":"1","type":"text","text":{"body":"x"}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "+15551234567", msg.Phone)
}

func TestNormalize_PassThroughFields(t *testing.T) {
	msg, ok, err := Normalize(envelope(`{"from":"4915112345678","id":"wamid.HBgLMTU1NTEyMzQ1NjcVAgASGBQzQTdGRjA=","timestamp":"1749416383","type":"text","text":{"body":"hi"}}`))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "wamid.HBgLMTU1NTEyMzQ1NjcVAgASGBQzQTdGRjA=", msg.WAMessageID)
	assert.JSONEq(t, `"1749416383"`, string(msg.Timestamp))

	// Numeric timestamps are forwarded as numbers, unchanged.
	msg, ok, err = Normalize(envelope(`{"from":"1","id":"a","timestamp":1749416383,"type":"text","text":{"body":"hi"}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1749416383", string(msg.Timestamp))
}

func TestNormalize_NoMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "status update",
			body: `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","statuses":[{"id":"wamid.1","status":"delivered","timestamp":"1","recipient_id":"15551234567"}]}}]}]}`,
		},
		{name: "empty object", body: `{}`},
		{name: "empty entry", body: `{"entry":[]}`},
		{name: "empty changes", body: `{"entry":[{"changes":[]}]}`},
		{name: "empty messages", body: `{"entry":[{"changes":[{"value":{"messages":[]}}]}]}`},
		{name: "null message", body: `{"entry":[{"changes":[{"value":{"messages":[null]}}]}]}`},
		{name: "null entry", body: `{"entry":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Normalize([]byte(tt.body))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte(`not json`)},
		{name: "missing from", body: envelope(`{"id":"a","type":"text","text":{"body":"x"}}`)},
		{name: "missing type", body: envelope(`{"from":"1","id":"a","text":{"body":"x"}}`)},
		{name: "numeric body", body: envelope(`{"from":"1","type":"text","text":{"body":42}}`)},
		{name: "button as string", body: envelope(`{"from":"1","type":"button","button":"yes"}`)},
		{name: "text as string", body: envelope(`{"from":"1","type":"text","text":"hi"}`)},
		{name: "empty from", body: envelope(`{"from":"","type":"text","text":{"body":"x"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Normalize(tt.body)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNormalize_OnlyFirstMessage(t *testing.T) {
	body := envelope(`{"from":"1","id":"first","timestamp":"1","type":"text","text":{"body":"one"}},{"from":"2","id":"second","timestamp":"2","type":"text","text":{"body":"two"}}`)

	msg, ok, err := Normalize(body)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", msg.WAMessageID)
	assert.Equal(t, "one", msg.Text)
}

func TestNormalize_Idempotent(t *testing.T) {
	body := envelope(`{"from":"15551234567","id":"wamid.1","timestamp":"1749416383","type":"button","button":{"payload":"BTN1"}}`)
	original := append([]byte(nil), body...)

	first, ok1, err1 := Normalize(body)
	second, ok2, err2 := Normalize(body)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, original, body, "Normalize must not modify its input")
}

func TestMessage_JSON(t *testing.T) {
	msg := Message{
		Phone:       "+15551234567",
		Text:        "Hello",
		WAMessageID: "wamid.1",
		Timestamp:   json.RawMessage(`"1749416383"`),
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"+15551234567","text":"Hello","waMessageId":"wamid.1","timestamp":"1749416383"}`, string(data))

	data, err = json.Marshal(Message{Phone: "+1", Text: ""})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"+1","text":""}`, string(data))
}
