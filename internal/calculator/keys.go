package calculator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKey is returned for a keypad label no action is bound to.
	ErrUnknownKey = errors.New("unknown key")
	// ErrEmptyKeys is returned when a key sequence has nothing to apply.
	ErrEmptyKeys = errors.New("no keys provided")
)

// keyAliases maps the labels printed on the keypad, and their common
// ASCII spellings, onto actions.
var keyAliases = map[string]Action{
	".":   Dot(),
	",":   Dot(),
	"+":   Op(OpAdd),
	"-":   Op(OpSubtract),
	"−":   Op(OpSubtract),
	"*":   Op(OpMultiply),
	"x":   Op(OpMultiply),
	"×":   Op(OpMultiply),
	"/":   Op(OpDivide),
	"÷":   Op(OpDivide),
	"=":   Equals(),
	"C":   Clear(),
	"AC":  Clear(),
	"⌫":   Delete(),
	"DEL": Delete(),
	"BS":  Delete(),
	"%":   Percent(),
	"±":   SignFlip(),
	"+/-": SignFlip(),
	"NEG": SignFlip(),
}

// ParseKey resolves a keypad label to the action it triggers.
func ParseKey(label string) (Action, error) {
	key := strings.TrimSpace(label)
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return Digit(key), nil
	}
	if a, ok := keyAliases[strings.ToUpper(key)]; ok {
		return a, nil
	}
	if a, ok := keyAliases[key]; ok {
		return a, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownKey, label)
}

// ParseKeys resolves every label, failing on the first unknown one.
func ParseKeys(labels []string) ([]Action, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyKeys
	}
	actions := make([]Action, 0, len(labels))
	for i, label := range labels {
		a, err := ParseKey(label)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// ApplyKeys presses labels in order starting from s. Labels are validated up
// front so a bad sequence leaves s untouched.
func ApplyKeys(s State, labels []string) (State, error) {
	actions, err := ParseKeys(labels)
	if err != nil {
		return s, err
	}
	for _, a := range actions {
		s = Apply(s, a)
	}
	return s, nil
}
