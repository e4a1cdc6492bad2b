package whatsapp

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const messageSchemaURL = "warelay://whatsapp/message.json"

// messageSchemaJSON constrains the fields Normalize reads. Unknown fields
// and message types are allowed; Meta adds them without notice.
// A message without a sender or type is rejected rather than forwarded
// with placeholder values.
const messageSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["from", "type"],
  "properties": {
    "from": {"type": "string", "minLength": 1},
    "id": {"type": ["string", "null"]},
    "timestamp": {"type": ["string", "number", "null"]},
    "type": {"type": "string", "minLength": 1},
    "text": {
      "type": ["object", "null"],
      "properties": {"body": {"type": ["string", "null"]}}
    },
    "button": {
      "type": ["object", "null"],
      "properties": {
        "text": {"type": ["string", "null"]},
        "payload": {"type": ["string", "null"]}
      }
    },
    "interactive": {
      "type": ["object", "null"],
      "properties": {
        "type": {"type": ["string", "null"]},
        "button_reply": {"$ref": "#/$defs/reply"},
        "list_reply": {"$ref": "#/$defs/reply"}
      }
    }
  },
  "$defs": {
    "reply": {
      "type": ["object", "null"],
      "properties": {
        "id": {"type": ["string", "null"]},
        "title": {"type": ["string", "null"]}
      }
    }
  }
}`

var messageSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(messageSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse message schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(messageSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add message schema: %w", err)
	}

	schema, err := c.Compile(messageSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile message schema: %w", err)
	}
	return schema, nil
})

// validateMessage checks one raw message object against the schema.
func validateMessage(raw []byte) error {
	schema, err := messageSchema()
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("message does not match schema: %w", err)
	}
	return nil
}
