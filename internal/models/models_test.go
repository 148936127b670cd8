package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStateGetString(t *testing.T) {
	s := &UserState{TempData: map[string]interface{}{
		"provider": "Therapist",
		"count":    3,
	}}

	assert.Equal(t, "Therapist", s.GetString("provider"))
	assert.Equal(t, "", s.GetString("missing"))
	assert.Equal(t, "", s.GetString("count"))

	empty := &UserState{}
	assert.Equal(t, "", empty.GetString("provider"))
}

func TestUserStateGetStrings(t *testing.T) {
	s := &UserState{TempData: map[string]interface{}{
		"slots": []string{"10:00", "11:00"},
	}}
	assert.Equal(t, []string{"10:00", "11:00"}, s.GetStrings("slots"))
	assert.Nil(t, s.GetStrings("missing"))
}

func TestUserStateGetStringsAfterJSONRoundTrip(t *testing.T) {
	// Redis хранит состояние как JSON, списки возвращаются как []interface{}.
	orig := &UserState{
		UserID:      42,
		CurrentStep: StateSelectTime,
		TempData: map[string]interface{}{
			"slots": []string{"10:00", "14:00", "16:00"},
		},
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var restored UserState
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, []string{"10:00", "14:00", "16:00"}, restored.GetStrings("slots"))
	assert.Equal(t, StateSelectTime, restored.CurrentStep)
}

func TestUserStateGetInt64(t *testing.T) {
	s := &UserState{TempData: map[string]interface{}{
		"a": int64(7),
		"b": float64(8), // из JSON
		"c": 9,
		"d": "not a number",
	}}

	assert.Equal(t, int64(7), s.GetInt64("a"))
	assert.Equal(t, int64(8), s.GetInt64("b"))
	assert.Equal(t, int64(9), s.GetInt64("c"))
	assert.Equal(t, int64(0), s.GetInt64("d"))
	assert.Equal(t, int64(0), s.GetInt64("missing"))
}
