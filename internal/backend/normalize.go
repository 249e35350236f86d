package backend

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// The backend's list endpoints answer in three historical shapes: a bare
// array, {"data": [...]} and {"results": [...]}. decodeList translates all
// of them into one canonical slice so nothing above this boundary ever
// shape-sniffs.
func decodeList(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	trimmed := trimLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return errors.Wrap(json.Unmarshal(raw, out), "decode list")
	}

	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrap(err, "decode list envelope")
	}
	switch {
	case len(envelope.Data) > 0 && string(envelope.Data) != "null":
		return errors.Wrap(json.Unmarshal(envelope.Data, out), "decode list data")
	case len(envelope.Results) > 0 && string(envelope.Results) != "null":
		return errors.Wrap(json.Unmarshal(envelope.Results, out), "decode list results")
	}
	return nil
}

func trimLeadingSpace(raw json.RawMessage) json.RawMessage {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return raw[i:]
		}
	}
	return nil
}
