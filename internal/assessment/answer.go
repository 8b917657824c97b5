package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueText
	ValueChoice
)

// Value is an answer value: either free text (or an option label) or a
// numeric choice. The zero Value is empty.
type Value struct {
	kind   ValueKind
	text   string
	choice int
}

func Text(s string) Value { return Value{kind: ValueText, text: s} }

func Choice(n int) Value { return Value{kind: ValueChoice, choice: n} }

func (v Value) Kind() ValueKind { return v.kind }

// TextValue returns the text and whether v holds text.
func (v Value) TextValue() (string, bool) { return v.text, v.kind == ValueText }

// ChoiceValue returns the number and whether v holds a choice.
func (v Value) ChoiceValue() (int, bool) { return v.choice, v.kind == ValueChoice }

// Empty reports whether v carries nothing usable. Text containing only
// whitespace counts as empty.
func (v Value) Empty() bool {
	switch v.kind {
	case ValueText:
		return strings.TrimSpace(v.text) == ""
	case ValueChoice:
		return false
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueChoice:
		return strconv.Itoa(v.choice)
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueText:
		return json.Marshal(v.text)
	case ValueChoice:
		return json.Marshal(v.choice)
	}
	return []byte("null"), nil
}

var errBadValue = errors.New("answer value must be a string or an integer")

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errBadValue
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("%w: %s", errBadValue, data)
	}
	*v = Choice(int(i))
	return nil
}

// Answer pairs a question id with its value.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      Value  `json:"value"`
}

// Resolution is what an answer means for a given question.
type Resolution struct {
	Label   string
	Score   int
	Matched bool
}

// Resolve maps an answer value to an option label and score. Unscored
// questions keep the raw text and score 0. A value that matches no option is
// a miss: it scores 0 and keeps its own text as the label. Resolve never fails.
func Resolve(q *Question, v Value) Resolution {
	if q == nil || !q.Scored() {
		return Resolution{Label: v.String()}
	}
	switch v.kind {
	case ValueChoice:
		if o, ok := q.optionByValue(v.choice); ok {
			return Resolution{Label: o.Label, Score: o.Value, Matched: true}
		}
	case ValueText:
		if o, ok := q.optionByLabel(v.text); ok {
			return Resolution{Label: o.Label, Score: o.Value, Matched: true}
		}
	}
	return Resolution{Label: v.String()}
}
