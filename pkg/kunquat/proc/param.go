package proc

import "encoding/json"

// decodeFloatParam decodes a jsonf-tagged parameter value into
// dst. Processors call this from SetParam for their float-valued build
// parameters.
func decodeFloatParam(raw []byte, dst *float64) error {
	return json.Unmarshal(raw, dst)
}

// decodeIntParam decodes a jsoni-tagged parameter value into dst.
func decodeIntParam(raw []byte, dst *int64) error {
	return json.Unmarshal(raw, dst)
}

// decodeBoolParam decodes a jsonb-tagged parameter value into dst.
func decodeBoolParam(raw []byte, dst *bool) error {
	return json.Unmarshal(raw, dst)
}
