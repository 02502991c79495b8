package ingest

import (
	"bytes"
	"encoding/json"

	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
)

// ParseEvent decodes a raw message body into a ParsedEvent. Anything that is
// not a JSON object is a parse error; field-level defects are left to the
// validator.
func ParseEvent(body []byte) (*ParsedEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeParse, "empty payload")
	}
	if trimmed[0] != '{' {
		return nil, pkgerrors.New(pkgerrors.CodeParse, "payload is not a JSON object")
	}

	var event ParsedEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "decoding payload")
	}
	return &event, nil
}
