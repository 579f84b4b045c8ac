package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas for the two inbound bridge event contracts. The bridge is a
// separate process; payloads are rejected up front rather than half-applied.
const conditionMatchSchema = `{
	"type": "object",
	"required": ["signal_id", "instrument_code", "match_kind"],
	"properties": {
		"signal_id": {"type": "integer", "minimum": 1},
		"instrument_code": {"type": "string", "minLength": 1},
		"match_kind": {"enum": ["entered", "exited"]}
	}
}`

const fillEventSchema = `{
	"type": "object",
	"required": ["order_reference", "filled_quantity", "filled_price"],
	"properties": {
		"order_reference": {"type": "string", "minLength": 1},
		"filled_quantity": {"type": "integer", "minimum": 1},
		"filled_price": {"type": "integer", "minimum": 1}
	}
}`

var (
	compiledConditionMatch = jsonschema.MustCompileString("condition-match.json", conditionMatchSchema)
	compiledFillEvent      = jsonschema.MustCompileString("fill-event.json", fillEventSchema)
)

// decodeValidated reads the request body, checks it against schema, and
// decodes it into out.
func decodeValidated(c *gin.Context, schema *jsonschema.Schema, out any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading body failed: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("payload rejected: %w", err)
	}
	return json.Unmarshal(raw, out)
}
