// Package draft defines the closed set of AI-proposed entity drafts and the
// parser that recovers them from model output.
package draft

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the draft discriminant. The set is closed: every consumer
// switches over these tags.
type Kind string

const (
	KindTask      Kind = "task"
	KindEpic      Kind = "epic"
	KindChallenge Kind = "challenge"
	KindEvent     Kind = "event"
	KindBill      Kind = "bill"
	KindNote      Kind = "note"
)

// Draft is the closed interface over the six variants. The discriminant is
// derived from the concrete type, never stored alongside it.
type Draft interface {
	Kind() Kind
}

// Defaults applied when the model omits classification fields.
const (
	DefaultConfidence    = 0.7
	DefaultTaskSize      = 3
	DefaultLifeArea      = "growth"
	DefaultQuadrant      = "q2"
	DefaultChallengeDays = 30
)

// Task is a proposed actionable item.
type Task struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	LifeWheelAreaID  string `json:"lifeWheelAreaId,omitempty"`
	PriorityQuadrant string `json:"priorityQuadrant,omitempty"`
	SizeEstimate     int    `json:"sizeEstimate,omitempty"`
	DueDate          string `json:"dueDate,omitempty"`
	Recurrence       string `json:"recurrence,omitempty"`
}

func (Task) Kind() Kind { return KindTask }

func (t *Task) normalize() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task draft requires a title")
	}
	if t.LifeWheelAreaID == "" {
		t.LifeWheelAreaID = DefaultLifeArea
	}
	if t.PriorityQuadrant == "" {
		t.PriorityQuadrant = DefaultQuadrant
	}
	if t.SizeEstimate <= 0 {
		t.SizeEstimate = DefaultTaskSize
	} else if t.SizeEstimate > 8 {
		t.SizeEstimate = 8
	}
	return nil
}

// Epic is a proposed long-running goal grouping tasks.
type Epic struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	LifeWheelAreaID string `json:"lifeWheelAreaId,omitempty"`
	TargetDate      string `json:"targetDate,omitempty"`
}

func (Epic) Kind() Kind { return KindEpic }

func (e *Epic) normalize() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("epic draft requires a name")
	}
	if e.LifeWheelAreaID == "" {
		e.LifeWheelAreaID = DefaultLifeArea
	}
	return nil
}

// Challenge is a proposed repeated-practice commitment.
type Challenge struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DurationDays int    `json:"durationDays,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
}

func (Challenge) Kind() Kind { return KindChallenge }

func (c *Challenge) normalize() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("challenge draft requires a name")
	}
	if c.DurationDays <= 0 {
		c.DurationDays = DefaultChallengeDays
	} else if c.DurationDays > 365 {
		c.DurationDays = 365
	}
	if c.Frequency == "" {
		c.Frequency = "daily"
	}
	return nil
}

// Event is a proposed calendar entry.
type Event struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartsAt    string `json:"startsAt,omitempty"`
	EndsAt      string `json:"endsAt,omitempty"`
	Location    string `json:"location,omitempty"`
}

func (Event) Kind() Kind { return KindEvent }

func (e *Event) normalize() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event draft requires a title")
	}
	return nil
}

// Bill is a proposed recurring or one-off payment reminder.
type Bill struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount,omitempty"`
	DueDate    string  `json:"dueDate,omitempty"`
	Recurrence string  `json:"recurrence,omitempty"`
}

func (Bill) Kind() Kind { return KindBill }

func (b *Bill) normalize() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("bill draft requires a name")
	}
	if b.Amount < 0 {
		b.Amount = 0
	}
	return nil
}

// Note is a proposed free-form capture. Also the degradation target when
// model output is unusable: the user's input survives as note content.
type Note struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (Note) Kind() Kind { return KindNote }

func (n *Note) normalize() error {
	if strings.TrimSpace(n.Content) == "" && strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("note draft requires content")
	}
	return nil
}

// Parsed is one draft recovered from model output together with the
// model-reported confidence and reasoning.
type Parsed struct {
	Draft      Draft
	Confidence float64
	Reasoning  string
}

// envelope carries the discriminant and scoring fields of a draft object.
type envelope struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// DecodeObject parses one JSON object into a typed draft. The object must
// carry a "type" discriminant; confidence defaults to 0.7 and is clamped to
// [0,1]; variant fields fall back to their per-variant defaults.
func DecodeObject(raw []byte) (*Parsed, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid draft JSON: %w", err)
	}

	var d Draft
	var normErr error
	switch Kind(strings.ToLower(env.Type)) {
	case KindTask:
		v := &Task{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid task draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	case KindEpic:
		v := &Epic{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid epic draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	case KindChallenge:
		v := &Challenge{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid challenge draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	case KindEvent:
		v := &Event{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid event draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	case KindBill:
		v := &Bill{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid bill draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	case KindNote:
		v := &Note{}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid note draft: %w", err)
		}
		normErr, d = v.normalize(), *v
	default:
		return nil, fmt.Errorf("unknown draft type: %q", env.Type)
	}
	if normErr != nil {
		return nil, normErr
	}

	confidence := DefaultConfidence
	if env.Confidence != nil {
		confidence = *env.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
	}

	return &Parsed{Draft: d, Confidence: confidence, Reasoning: env.Reasoning}, nil
}

// MarshalPayload serializes a draft to its persisted JSON form, with the
// "type" discriminant derived from the concrete type.
func MarshalPayload(d Draft) (string, error) {
	fields, err := toMap(d)
	if err != nil {
		return "", err
	}
	fields["type"] = string(d.Kind())
	out, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft payload: %w", err)
	}
	return string(out), nil
}

// ApplyUpdates returns a new draft with the given field updates merged over
// the original. The result passes through full decoding, so validation and
// clamping apply to the merged object; the draft type cannot change.
func ApplyUpdates(d Draft, updates map[string]any) (Draft, error) {
	fields, err := toMap(d)
	if err != nil {
		return nil, err
	}
	for k, v := range updates {
		if k == "type" {
			continue
		}
		fields[k] = v
	}
	fields["type"] = string(d.Kind())

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge draft updates: %w", err)
	}
	parsed, err := DecodeObject(merged)
	if err != nil {
		return nil, err
	}
	return parsed.Draft, nil
}

// ClarifyingQuestions accompanies the fallback note: a generic follow-up
// asking the user to restate what the unusable model output was supposed
// to capture.
const ClarifyingQuestions = "I saved your input as a note for now. Could you clarify what it should become (a task, an event, a bill), and whether it has a due date or priority?"

// FallbackNote builds the degradation draft preserving the user's raw input
// when the model output is unusable.
func FallbackNote(sourceInput string) *Parsed {
	return &Parsed{
		Draft: Note{
			Title:   "Unprocessed capture",
			Content: sourceInput,
		},
		Confidence: 0.3,
		Reasoning:  "model output could not be parsed; input preserved verbatim",
	}
}

func toMap(d Draft) (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to expand draft fields: %w", err)
	}
	return fields, nil
}
