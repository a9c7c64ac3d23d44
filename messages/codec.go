package messages

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Encode marshals a wire message.
func Encode(v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode unmarshals a wire message into v.
func Decode(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// DecodeClientMessage parses a client envelope and checks it has a type.
func DecodeClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := Decode(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("decode message: missing type")
	}
	return &msg, nil
}

// Validate checks the validate tags of a decoded payload.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// DecodeUtterance reads and validates an utterance payload. Surrounding
// whitespace is dropped before validation.
func DecodeUtterance(data []byte) (UtterancePayload, error) {
	var p UtterancePayload
	if err := Decode(data, &p); err != nil {
		return p, err
	}
	p.Text = strings.TrimSpace(p.Text)
	return p, Validate(p)
}
