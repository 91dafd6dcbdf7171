package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// chatRequestSchema is the contract for POST /api/chat bodies. session_id may
// be a string, null, or absent; user_message is required and non-empty.
const chatRequestSchema = `{
	"type": "object",
	"properties": {
		"user_message": {"type": "string", "minLength": 1},
		"session_id": {"type": ["string", "null"]}
	},
	"required": ["user_message"],
	"additionalProperties": false
}`

var chatSchemaLoader = gojsonschema.NewStringLoader(chatRequestSchema)

// validateChatRequest checks a raw request body against the chat schema.
func validateChatRequest(body []byte) error {
	result, err := gojsonschema.Validate(chatSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("invalid chat request: %s", strings.Join(problems, "; "))
}
