package callbacks

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrShortPayload is returned when a callback carries fewer arguments
	// than its event requires. The returned arguments are still padded.
	ErrShortPayload = errors.New("callback payload has too few arguments")
	// ErrUnknownEvent is returned for callback names with no decoder.
	ErrUnknownEvent = errors.New("unknown callback event")
	// ErrMalformedNumber is returned when a numeric argument does not parse.
	ErrMalformedNumber = errors.New("malformed numeric argument")
)

// EncodeArgs serialises callback arguments as a JSON string array, the form
// native SDKs deliver them in.
func EncodeArgs(args ...string) string {
	if args == nil {
		args = []string{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		// a []string always marshals
		return "[]"
	}
	return string(b)
}

// DecodeArgs parses a JSON array payload positionally. The result always has
// at least min entries: missing trailing fields are padded with "" and
// ErrShortPayload is returned alongside the padded slice. Non-string JSON
// values are kept in their literal form so numbers survive decoding.
func DecodeArgs(payload string, min int) ([]string, error) {
	var raw []json.RawMessage
	var decodeErr error
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			decodeErr = fmt.Errorf("decode callback payload: %w", err)
			raw = nil
		}
	}

	args := make([]string, 0, max(len(raw), min))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			args = append(args, s)
			continue
		}
		if string(r) == "null" {
			args = append(args, "")
			continue
		}
		args = append(args, string(r))
	}

	if len(args) < min {
		got := len(args)
		for len(args) < min {
			args = append(args, "")
		}
		if decodeErr != nil {
			return args, errors.Join(decodeErr, fmt.Errorf("%w: want %d, got %d", ErrShortPayload, min, got))
		}
		return args, fmt.Errorf("%w: want %d, got %d", ErrShortPayload, min, got)
	}
	return args, decodeErr
}

// Message is one native callback as it crosses the platform boundary: an
// event name and its JSON argument array.
type Message struct {
	Name    string `json:"event"`
	Payload string `json:"args"`
}

// NewMessage builds a Message from positional arguments.
func NewMessage(name string, args ...string) Message {
	return Message{Name: name, Payload: EncodeArgs(args...)}
}
