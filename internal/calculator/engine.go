package calculator

import (
	"math"
	"strconv"
	"strings"
)

// ErrorMarker is the display value left behind by a division by zero or an
// overflowing result.
const ErrorMarker = "Error"

// Operator is a pending binary operation. The zero value means none is pending.
type Operator string

const (
	OpNone     Operator = ""
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
	OpDivide   Operator = "/"
)

// Valid reports whether op is one of the four arithmetic operators.
func (op Operator) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// State is the whole calculator: the entry on display, the stored left-hand
// operand and the operator waiting for its right-hand side.
type State struct {
	Current  string
	Previous *string
	Operator Operator
	// Overwrite makes the next digit replace Current instead of extending it.
	Overwrite bool
}

// InitialState returns the state of a freshly opened (or cleared) calculator.
func InitialState() State {
	return State{Current: "0", Overwrite: true}
}

// HasPending reports whether an operator and its left-hand operand are stored.
func (s State) HasPending() bool {
	return s.Previous != nil && s.Operator != OpNone
}

// IsError reports whether the display shows the error marker.
func (s State) IsError() bool {
	return s.Current == ErrorMarker
}

// ActionKind enumerates the keypad actions the engine understands.
type ActionKind int

const (
	ActionDigit ActionKind = iota
	ActionDot
	ActionOperator
	ActionEquals
	ActionClear
	ActionDelete
	ActionSignFlip
	ActionPercent
)

var actionNames = [...]string{
	ActionDigit:    "digit",
	ActionDot:      "dot",
	ActionOperator: "operator",
	ActionEquals:   "equals",
	ActionClear:    "clear",
	ActionDelete:   "delete",
	ActionSignFlip: "sign_flip",
	ActionPercent:  "percent",
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[k]
}

// Action is a single key press. Value carries the digit or operator for the
// kinds that need one.
type Action struct {
	Kind  ActionKind
	Value string
}

func Digit(d string) Action { return Action{Kind: ActionDigit, Value: d} }
func Dot() Action { return Action{Kind: ActionDot} }
func Op(op Operator) Action { return Action{Kind: ActionOperator, Value: string(op)} }
func Equals() Action { return Action{Kind: ActionEquals} }
func Clear() Action { return Action{Kind: ActionClear} }
func Delete() Action { return Action{Kind: ActionDelete} }
func SignFlip() Action { return Action{Kind: ActionSignFlip} }
func Percent() Action { return Action{Kind: ActionPercent} }

func (a Action) String() string {
	if a.Value == "" {
		return a.Kind.String()
	}
	return a.Kind.String() + "(" + a.Value + ")"
}

// Apply returns the state that results from pressing a on s. It never fails:
// malformed actions (a digit outside 0-9, an unknown operator) leave s as is.
func Apply(s State, a Action) State {
	switch a.Kind {
	case ActionDigit:
		return applyDigit(s, a.Value)
	case ActionDot:
		return applyDot(s)
	case ActionOperator:
		return applyOperator(s, Operator(a.Value))
	case ActionEquals:
		return applyEquals(s)
	case ActionClear:
		return InitialState()
	case ActionDelete:
		return applyDelete(s)
	case ActionSignFlip:
		return applySignFlip(s)
	case ActionPercent:
		return applyPercent(s)
	}
	return s
}

func applyDigit(s State, d string) State {
	if len(d) != 1 || d[0] < '0' || d[0] > '9' {
		return s
	}

	var next string
	switch {
	case s.Overwrite || s.IsError():
		next = d
	case s.Current == "0":
		next = d
	case s.Current == "-0":
		next = "-" + d
	default:
		next = s.Current + d
	}
	// Appending to an exponent display can overflow it.
	if _, ok := parseOperand(next); !ok {
		return s
	}
	s.Current = next
	s.Overwrite = false
	return s
}

func applyDot(s State) State {
	if s.IsError() {
		s.Current = "0."
		s.Overwrite = false
		return s
	}
	if strings.Contains(s.Current, ".") {
		return s
	}
	// "1e+21." is not a number.
	next := s.Current + "."
	if _, ok := parseOperand(next); !ok {
		return s
	}
	s.Current = next
	s.Overwrite = false
	return s
}

func applyOperator(s State, op Operator) State {
	if !op.Valid() {
		return s
	}

	switch {
	case s.HasPending() && !s.Overwrite:
		result := Evaluate(*s.Previous, s.Current, s.Operator)
		s.Previous = &result
		s.Current = result
	case s.Operator != OpNone && s.Overwrite:
		// Operator pressed again before a right-hand operand was typed:
		// only the choice of operator changes.
	default:
		prev := s.Current
		s.Previous = &prev
	}

	s.Operator = op
	s.Overwrite = true
	return s
}

func applyEquals(s State) State {
	if !s.HasPending() {
		return s
	}
	s.Current = Evaluate(*s.Previous, s.Current, s.Operator)
	s.Previous = nil
	s.Operator = OpNone
	s.Overwrite = true
	return s
}

func applyDelete(s State) State {
	if len(s.Current) <= 1 || s.IsError() {
		s.Current = "0"
		s.Overwrite = true
		return s
	}

	// Trimming "-5" or "1e-7" can leave a dangling sign or exponent.
	trimmed := s.Current[:len(s.Current)-1]
	if _, ok := parseOperand(trimmed); !ok {
		s.Current = "0"
		s.Overwrite = true
		return s
	}
	s.Current = trimmed
	s.Overwrite = false
	return s
}

func applySignFlip(s State) State {
	if s.Current == "0" || s.IsError() {
		return s
	}
	if rest, ok := strings.CutPrefix(s.Current, "-"); ok {
		s.Current = rest
	} else {
		s.Current = "-" + s.Current
	}
	return s
}

func applyPercent(s State) State {
	cur, ok := parseOperand(s.Current)
	switch {
	case !ok:
		s.Current = "0"
	case s.HasPending():
		prev, ok := parseOperand(*s.Previous)
		if !ok {
			s.Current = "0"
			break
		}
		s.Current = formatResult(prev * cur / 100)
	default:
		s.Current = formatResult(cur / 100)
	}
	s.Overwrite = true
	return s
}

// Evaluate computes a op b on the textual operands. Operands that do not
// parse to a finite number yield "0"; dividing by zero yields ErrorMarker.
func Evaluate(a, b string, op Operator) string {
	x, okA := parseOperand(a)
	y, okB := parseOperand(b)
	if !okA || !okB {
		return "0"
	}

	switch op {
	case OpAdd:
		return formatResult(x + y)
	case OpSubtract:
		return formatResult(x - y)
	case OpMultiply:
		return formatResult(x * y)
	case OpDivide:
		if y == 0 {
			return ErrorMarker
		}
		return formatResult(x / y)
	}
	return b
}

func parseOperand(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatResult keeps the display parseable: anything that overflowed to an
// infinity becomes the error marker.
func formatResult(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrorMarker
	}
	return FormatNumber(f)
}
