package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mhalter/coachflow/store"
)

// Learner thresholds.
const (
	// MinModifications is the minimum number of recorded modifications
	// before any learning happens for a user.
	MinModifications = 3

	// MinPatternCount is the minimum occurrences of one (field, value)
	// correction before it counts as a pattern.
	MinPatternCount = 3

	// MaxPatterns caps how many patterns are kept per user.
	MaxPatterns = 20
)

// CorrectionPattern is one learned (field, preferred value) pair with how
// often the user made that exact correction.
type CorrectionPattern struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Learner mines a user's modification history for correction patterns and
// serializes them onto the preference aggregate.
type Learner struct {
	store *store.Store
}

// NewLearner creates a preference learner.
func NewLearner(st *store.Store) *Learner {
	return &Learner{store: st}
}

// LearnFromUser diffs original vs modified draft JSON field by field across
// the user's MODIFIED feedback records, keeps the (field, value) pairs seen
// at least MinPatternCount times, caps the list at MaxPatterns by count,
// and stores the result on the user's preference record. Users with fewer
// than MinModifications recorded modifications are skipped.
func (l *Learner) LearnFromUser(ctx context.Context, userID int32) ([]CorrectionPattern, error) {
	modified := store.FeedbackModified
	records, err := l.store.ListDraftFeedback(ctx, &store.FindDraftFeedback{
		UserID: &userID,
		Action: &modified,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list modifications: %w", err)
	}
	if len(records) < MinModifications {
		return nil, nil
	}

	counts := map[CorrectionPattern]int{}
	for _, record := range records {
		for field, value := range diffFields(record.OriginalJSON, record.ModifiedJSON) {
			counts[CorrectionPattern{Field: field, Value: value}]++
		}
	}

	patterns := make([]CorrectionPattern, 0, len(counts))
	for key, count := range counts {
		if count < MinPatternCount {
			continue
		}
		key.Count = count
		patterns = append(patterns, key)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		if patterns[i].Field != patterns[j].Field {
			return patterns[i].Field < patterns[j].Field
		}
		return patterns[i].Value < patterns[j].Value
	})
	if len(patterns) > MaxPatterns {
		patterns = patterns[:MaxPatterns]
	}

	if err := l.persist(ctx, userID, patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// diffFields returns the fields whose value changed between the original
// and modified draft JSON, mapped to the new value. Values are compared and
// recorded in their canonical JSON string form. Unparseable JSON on either
// side yields no diffs.
func diffFields(originalJSON, modifiedJSON string) map[string]string {
	var original, modified map[string]any
	if err := json.Unmarshal([]byte(originalJSON), &original); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(modifiedJSON), &modified); err != nil {
		return nil
	}

	diffs := map[string]string{}
	for field, newValue := range modified {
		oldValue, existed := original[field]
		newCanon := canonical(newValue)
		if !existed || canonical(oldValue) != newCanon {
			diffs[field] = newCanon
		}
	}
	return diffs
}

func canonical(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func (l *Learner) persist(ctx context.Context, userID int32, patterns []CorrectionPattern) error {
	serialized := ""
	if len(patterns) > 0 {
		raw, err := json.Marshal(patterns)
		if err != nil {
			return fmt.Errorf("failed to serialize patterns: %w", err)
		}
		serialized = string(raw)
	}

	pref, err := l.store.GetUserCoachPreference(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preference: %w", err)
	}
	if pref == nil {
		pref = &store.UserCoachPreference{UserID: userID}
	}
	_, err = l.store.UpsertUserCoachPreference(ctx, &store.UpsertUserCoachPreference{
		UserID:        userID,
		Tone:          pref.Tone,
		DefaultMode:   pref.DefaultMode,
		Patterns:      serialized,
		ApprovedCount: pref.ApprovedCount,
		ModifiedCount: pref.ModifiedCount,
		RejectedCount: pref.RejectedCount,
		TotalCount:    pref.TotalCount,
	})
	if err != nil {
		return fmt.Errorf("failed to persist patterns: %w", err)
	}
	return nil
}

// ParsePatterns deserializes a stored pattern list. An empty string yields
// an empty list.
func ParsePatterns(serialized string) ([]CorrectionPattern, error) {
	if serialized == "" {
		return nil, nil
	}
	var patterns []CorrectionPattern
	if err := json.Unmarshal([]byte(serialized), &patterns); err != nil {
		return nil, fmt.Errorf("invalid pattern list: %w", err)
	}
	return patterns, nil
}
