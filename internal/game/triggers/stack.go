package triggers

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
)

// DetectOption configures trigger detection.
type DetectOption func(*detectConfig)

type detectConfig struct {
	newID func() string
}

// WithIDSource sets the generator for stacked trigger ids.
func WithIDSource(next func() string) DetectOption {
	return func(c *detectConfig) {
		if next != nil {
			c.newID = next
		}
	}
}

func newDetectConfig(opts []DetectOption) detectConfig {
	cfg := detectConfig{newID: uuid.NewString}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EncodeStack serializes stacked triggers with gob, bottom of the stack
// first. An empty stack encodes to nil.
func EncodeStack(stacked []StackedTrigger) ([]byte, error) {
	if len(stacked) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(stacked); err != nil {
		return nil, fmt.Errorf("failed to encode trigger stack: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeStack is the inverse of EncodeStack.
func DecodeStack(data []byte) ([]StackedTrigger, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var stacked []StackedTrigger
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&stacked); err != nil {
		return nil, fmt.Errorf("failed to decode trigger stack: %w", err)
	}
	return stacked, nil
}
