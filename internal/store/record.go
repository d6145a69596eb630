package store

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

const (
	keyExternalID  = "external_id"
	keyDisplayName = "display_name"
	keyFilename    = "filename"
)

// Record maps one external identity to the repository artifacts it owns.
type Record struct {
	ExternalID  string
	DisplayName string
	Filename    string
	// Attributes holds any extra values such as email, role or team.
	// Keys colliding with the three fixed fields are dropped on write.
	// A decoded record always carries a non-nil map.
	Attributes map[string]any
}

// Attr returns the string attribute named key, or "".
func (r Record) Attr(key string) string {
	s, _ := r.Attributes[key].(string)
	return s
}

func reserved(key string) bool {
	return key == keyExternalID || key == keyDisplayName || key == keyFilename
}

// MarshalJSON writes the fixed fields first followed by the sorted attributes.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}

		k, err := marshal(key)
		if err != nil {
			return err
		}

		v, err := marshal(value)
		if err != nil {
			return err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)

		return nil
	}

	fixed := [][2]string{
		{keyExternalID, r.ExternalID},
		{keyDisplayName, r.DisplayName},
		{keyFilename, r.Filename},
	}

	for _, kv := range fixed {
		if err := write(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	for _, key := range slices.Sorted(maps.Keys(r.Attributes)) {
		if reserved(key) {
			continue
		}

		if err := write(key, r.Attributes[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads the fixed fields and keeps every other key as an attribute.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ExternalID, _ = raw[keyExternalID].(string)
	r.DisplayName, _ = raw[keyDisplayName].(string)
	r.Filename, _ = raw[keyFilename].(string)
	r.Attributes = make(map[string]any)

	for k, v := range raw {
		if reserved(k) {
			continue
		}

		r.Attributes[k] = v
	}

	return nil
}

// marshal encodes v without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
