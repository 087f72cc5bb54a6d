package draft

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"unknown type", `{"type":"unicorn","title":"x"}`, true},
		{"missing type", `{"title":"x"}`, true},
		{"task without title", `{"type":"task"}`, true},
		{"epic without name", `{"type":"epic"}`, true},
		{"note with only title", `{"type":"note","title":"just a title"}`, false},
		{"note without anything", `{"type":"note"}`, true},
		{"case-insensitive type", `{"type":"TASK","title":"x"}`, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeObject([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeObject_Clamping(t *testing.T) {
	parsed, err := DecodeObject([]byte(`{"type":"task","title":"x","sizeEstimate":99,"confidence":1.5}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, parsed.Confidence)
	assert.Equal(t, 8, parsed.Draft.(Task).SizeEstimate)

	parsed, err = DecodeObject([]byte(`{"type":"challenge","name":"cold showers","durationDays":9999}`))
	require.NoError(t, err)
	challenge := parsed.Draft.(Challenge)
	assert.Equal(t, 365, challenge.DurationDays)
	assert.Equal(t, "daily", challenge.Frequency)

	parsed, err = DecodeObject([]byte(`{"type":"bill","name":"rent","amount":-5}`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, parsed.Draft.(Bill).Amount)
}

func TestDecodeObject_ConfidenceDefault(t *testing.T) {
	parsed, err := DecodeObject([]byte(`{"type":"note","content":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfidence, parsed.Confidence)
}

func TestMarshalPayload_CarriesType(t *testing.T) {
	payload, err := MarshalPayload(Task{Title: "x", LifeWheelAreaID: "lw-2", PriorityQuadrant: "q1", SizeEstimate: 5})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &fields))
	assert.Equal(t, "task", fields["type"])
	assert.Equal(t, "x", fields["title"])

	// Round-trip: the payload decodes back to the same draft.
	parsed, err := DecodeObject([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, Task{Title: "x", LifeWheelAreaID: "lw-2", PriorityQuadrant: "q1", SizeEstimate: 5}, parsed.Draft)
}

func TestApplyUpdates(t *testing.T) {
	original := Task{Title: "call dentist", LifeWheelAreaID: "lw-4", PriorityQuadrant: "q2", SizeEstimate: 3}

	updated, err := ApplyUpdates(original, map[string]any{
		"lifeWheelAreaId": "lw-2",
		"sizeEstimate":    99, // clamped on re-decode
		"type":            "event",
	})
	require.NoError(t, err)

	task, ok := updated.(Task)
	require.True(t, ok, "type must be immutable, got %T", updated)
	assert.Equal(t, "call dentist", task.Title)
	assert.Equal(t, "lw-2", task.LifeWheelAreaID)
	assert.Equal(t, 8, task.SizeEstimate)
}

func TestApplyUpdates_ValidationApplies(t *testing.T) {
	_, err := ApplyUpdates(Task{Title: "x"}, map[string]any{"title": ""})
	assert.Error(t, err)
}

func TestFallbackNote(t *testing.T) {
	parsed := FallbackNote("buy milk and eggs tomorrow")
	note, ok := parsed.Draft.(Note)
	require.True(t, ok)
	assert.Equal(t, "buy milk and eggs tomorrow", note.Content)
	assert.Equal(t, 0.3, parsed.Confidence)
}
