package artifact

import (
	"encoding/json"
	"fmt"
)

// DecodePayload recovers a typed stage payload from a record. In-memory
// stores hand the payload back as the original value; persistent stores
// hand it back as raw JSON. Anything else is round-tripped through JSON.
func DecodePayload[T any](payload any) (T, error) {
	var out T
	switch p := payload.(type) {
	case T:
		return p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &out); err != nil {
			return out, fmt.Errorf("artifact: decode payload: %w", err)
		}
		return out, nil
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return out, fmt.Errorf("artifact: re-encode payload: %w", err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("artifact: decode payload: %w", err)
		}
		return out, nil
	}
}
