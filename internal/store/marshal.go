package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// marshalParameters converts a parameter name list to JSON TEXT for storage.
// A nil list is stored as [] so reads never see null.
func marshalParameters(params []string) (string, error) {
	if params == nil {
		params = []string{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}
	return string(data), nil
}

func unmarshalParameters(text string) ([]string, error) {
	params := []string{}
	if err := json.Unmarshal([]byte(text), &params); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return params, nil
}

// formatHash stores an options hash as fixed-width hex; SQLite INTEGER is
// signed and cannot hold every uint64.
func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func parseHash(s string) (uint64, error) {
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse options hash %q: %w", s, err)
	}
	return h, nil
}
