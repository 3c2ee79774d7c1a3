package zimage

import (
	"bytes"
	"encoding/json"
)

// PayloadKind identifies which shape the success payload arrived in.
type PayloadKind int

// Payload shapes.
const (
	// PayloadAbsent means the field was missing, null, or a scalar or object
	// that cannot hold a list.
	PayloadAbsent PayloadKind = iota
	// PayloadList means the field was a JSON array of strings.
	PayloadList
	// PayloadEncoded means the field was a string holding a JSON array of
	// strings, which decoded cleanly.
	PayloadEncoded
	// PayloadMalformed means the field could not be interpreted as a list of
	// image references in either form.
	PayloadMalformed
)

// String returns a short name for logs.
func (k PayloadKind) String() string {
	switch k {
	case PayloadAbsent:
		return "absent"
	case PayloadList:
		return "list"
	case PayloadEncoded:
		return "encoded"
	case PayloadMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ResultPayload is the decoded form of the status response's "response"
// field. URLs is populated for PayloadList and PayloadEncoded.
type ResultPayload struct {
	Kind PayloadKind
	URLs []string
}

// UnmarshalJSON decodes either shape. It never fails, so a bad payload is
// reported as a failed task instead of breaking decoding of the whole body.
// A list or text that does not decode to strings is PayloadMalformed; a
// number, boolean, or object counts as no list at all.
func (p *ResultPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*p = ResultPayload{}

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var urls []string
		if err := json.Unmarshal(trimmed, &urls); err != nil {
			p.Kind = PayloadMalformed
			return nil
		}
		p.Kind = PayloadList
		p.URLs = urls

	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			p.Kind = PayloadMalformed
			return nil
		}
		var urls []string
		if err := json.Unmarshal([]byte(encoded), &urls); err != nil {
			p.Kind = PayloadMalformed
			return nil
		}
		p.Kind = PayloadEncoded
		p.URLs = urls

	default:
		p.Kind = PayloadAbsent
	}

	return nil
}

// MarshalJSON writes the payload back in its native list form. Used by the
// fake upstream in tests and by debug logging.
func (p ResultPayload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadList, PayloadEncoded:
		if p.URLs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.URLs)
	default:
		return []byte("null"), nil
	}
}
