package services

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional* wrappers distinguish "field absent" from "field set to empty"
// in JSON patches.

type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	o.Value = &s
	return nil
}

type OptionalJSON struct {
	Set   bool
	Value *json.RawMessage
}

func (o *OptionalJSON) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	o.Value = &cp
	return nil
}

func mergeJSONObjects(base, patch json.RawMessage) (json.RawMessage, error) {
	if len(patch) == 0 {
		if len(base) == 0 {
			return nil, nil
		}
		out := make(json.RawMessage, len(base))
		copy(out, base)
		return out, nil
	}

	var patchObj map[string]any
	if err := json.Unmarshal(patch, &patchObj); err != nil {
		return nil, err
	}
	if patchObj == nil {
		patchObj = map[string]any{}
	}

	var baseObj map[string]any
	if len(base) > 0 {
		if err := json.Unmarshal(base, &baseObj); err != nil {
			return nil, err
		}
	}
	if baseObj == nil {
		baseObj = map[string]any{}
	}

	for k, v := range patchObj {
		baseObj[k] = v
	}

	merged, err := json.Marshal(baseObj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(merged), nil
}
