package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// activitySchema pins the activity-log wire contract. The backend
// rejects malformed entries silently, so a contract break here would
// otherwise go unnoticed until an audit.
const activitySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "timestamp"],
  "properties": {
    "type": {
      "type": "string",
      "enum": [
        "visibility_change",
        "focus_change",
        "copy",
        "paste",
        "keydown",
        "keyup",
        "devtools_open",
        "devtools_suspected",
        "extension_detected",
        "console_tampered"
      ]
    },
    "timestamp": {"type": "integer", "minimum": 0},
    "details": {"type": "object"}
  },
  "additionalProperties": false
}`

var compiledActivitySchema = jsonschema.MustCompileString("activity.schema.json", activitySchema)

// validateActivityPayload checks a marshaled activity entry against the
// wire contract.
func validateActivityPayload(body []byte) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := compiledActivitySchema.Validate(doc); err != nil {
		return err
	}
	return nil
}
