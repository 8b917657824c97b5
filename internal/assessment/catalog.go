// Package assessment defines the question catalog and the scoring engine that
// turns a set of answers into a raw score, a percentage and a readiness tier.
// Everything here is pure and deterministic.
package assessment

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type InputKind string

const (
	InputShortText    InputKind = "short-text"
	InputEmail        InputKind = "email"
	InputSingleSelect InputKind = "single-select"
	InputLongText     InputKind = "long-text"
)

func (k InputKind) valid() bool {
	switch k {
	case InputShortText, InputEmail, InputSingleSelect, InputLongText:
		return true
	}
	return false
}

// Category groups questions for display. It plays no part in scoring.
type Category string

const (
	CategoryIdentity         Category = "identity"
	CategoryMarketSignal     Category = "market-signal"
	CategoryCustomerPriority Category = "customer-priority"
	CategoryExecution        Category = "execution"
	CategoryConfidence       Category = "confidence"
	CategoryStrategy         Category = "strategy"
)

// ContactField marks an identity question whose answer feeds ContactInfo.
type ContactField string

const (
	ContactName     ContactField = "name"
	ContactEmail    ContactField = "email"
	ContactRole     ContactField = "role"
	ContactIndustry ContactField = "industry"
)

var contactFields = []ContactField{ContactName, ContactEmail, ContactRole, ContactIndustry}

type Option struct {
	Label string `yaml:"label" json:"label"`
	Value int    `yaml:"value" json:"value"`
}

type Question struct {
	ID       string       `yaml:"id"`
	Category Category     `yaml:"category"`
	Kind     InputKind    `yaml:"kind"`
	Text     string       `yaml:"text"`
	Weight   int          `yaml:"weight"`
	Contact  ContactField `yaml:"contact"`
	Options  []Option     `yaml:"options"`
}

// Scored reports whether the question contributes to the total score.
func (q *Question) Scored() bool { return q.Weight > 0 }

func (q *Question) optionByLabel(label string) (Option, bool) {
	for _, o := range q.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

func (q *Question) optionByValue(v int) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

// Catalog is an immutable, ordered list of questions.
type Catalog struct {
	questions []Question
	byID      map[string]int
	contact   map[ContactField]string
	maxScore  int
}

var ErrInvalidCatalog = errors.New("invalid catalog")

// NewCatalog validates questions and builds a catalog. Every scored question
// must be a single-select whose highest option value equals its weight, and
// the four contact fields must each be bound to exactly one unscored question.
func NewCatalog(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidCatalog)
	}

	c := &Catalog{
		questions: make([]Question, len(questions)),
		byID:      make(map[string]int, len(questions)),
		contact:   make(map[ContactField]string, len(contactFields)),
	}

	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, q.ID)
		}
		if q.Contact != "" {
			if _, dup := c.contact[q.Contact]; dup {
				return nil, fmt.Errorf("%w: contact field %q bound twice", ErrInvalidCatalog, q.Contact)
			}
			c.contact[q.Contact] = q.ID
		}

		q.Options = append([]Option(nil), q.Options...)
		c.questions[i] = q
		c.byID[q.ID] = i
		c.maxScore += q.Weight
	}

	for _, f := range contactFields {
		if _, ok := c.contact[f]; !ok {
			return nil, fmt.Errorf("%w: no question bound to contact field %q", ErrInvalidCatalog, f)
		}
	}

	return c, nil
}

func validateQuestion(q Question) error {
	if q.ID == "" {
		return errors.New("missing id")
	}
	if !q.Kind.valid() {
		return fmt.Errorf("%s: unknown input kind %q", q.ID, q.Kind)
	}
	if q.Weight < 0 {
		return fmt.Errorf("%s: negative weight", q.ID)
	}
	if len(q.Options) > 0 && q.Kind != InputSingleSelect {
		return fmt.Errorf("%s: options on a %s question", q.ID, q.Kind)
	}
	if q.Contact != "" {
		switch q.Contact {
		case ContactName, ContactEmail, ContactRole, ContactIndustry:
		default:
			return fmt.Errorf("%s: unknown contact field %q", q.ID, q.Contact)
		}
		if q.Scored() {
			return fmt.Errorf("%s: contact question cannot be scored", q.ID)
		}
	}
	if !q.Scored() {
		return nil
	}

	if q.Kind != InputSingleSelect || len(q.Options) == 0 {
		return fmt.Errorf("%s: scored question needs single-select options", q.ID)
	}
	highest := 0
	for _, o := range q.Options {
		if o.Value < 0 {
			return fmt.Errorf("%s: option %q has negative value", q.ID, o.Label)
		}
		highest = max(highest, o.Value)
	}
	if highest != q.Weight {
		return fmt.Errorf("%s: weight %d does not match highest option value %d", q.ID, q.Weight, highest)
	}
	return nil
}

type catalogFile struct {
	Questions []Question `yaml:"questions"`
}

// ParseCatalog decodes a YAML catalog and validates it.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return NewCatalog(f.Questions)
}

// LoadCatalog reads the catalog at path, or the built-in catalog when path is
// empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Default returns the built-in 19-question catalog.
func Default() (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(defaultCatalogYAML, &f); err != nil {
		return nil, fmt.Errorf("decoding built-in catalog: %w", err)
	}
	return NewCatalog(f.Questions)
}

func (c *Catalog) Len() int { return len(c.questions) }

// At returns the question at index i. i must be in [0, Len()).
func (c *Catalog) At(i int) *Question { return &c.questions[i] }

// Question looks a question up by id; nil when absent.
func (c *Catalog) Question(id string) *Question {
	i, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &c.questions[i]
}

// Index returns the catalog position of a question id.
func (c *Catalog) Index(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Questions returns a copy of the ordered question list.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Scored returns the ids of scored questions in catalog order.
func (c *Catalog) Scored() []string {
	var ids []string
	for _, q := range c.questions {
		if q.Scored() {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// MaxScore is the sum of scored weights.
func (c *Catalog) MaxScore() int { return c.maxScore }

// ContactQuestion returns the question id bound to a contact field.
func (c *Catalog) ContactQuestion(f ContactField) string { return c.contact[f] }
