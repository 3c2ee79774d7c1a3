package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("failed to do something: %w", ErrNotFound), true},
		{"ErrGenerationNotFound", ErrGenerationNotFound, true},
		{"StoreError wrapping not found", NewStoreError("generation", "get", "lookup", ErrGenerationNotFound), true},
		{"ErrDuplicate", ErrDuplicate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(fmt.Errorf("insert: %w", ErrDuplicate)))
	assert.False(t, IsDuplicateError(ErrNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestStoreError(t *testing.T) {
	underlying := errors.New("connection reset")

	withErr := NewStoreError("generation", "create", "insert failed", underlying)
	assert.Equal(t, "create operation on generation failed: insert failed: connection reset", withErr.Error())
	assert.ErrorIs(t, withErr, underlying)

	withoutErr := NewStoreError("generation", "list", "bad limit", nil)
	assert.Equal(t, "list operation on generation failed: bad limit", withoutErr.Error())
	assert.Nil(t, withoutErr.Unwrap())
}

func TestGenerationRecordValidate(t *testing.T) {
	valid := func() *GenerationRecord {
		return &GenerationRecord{
			TaskID:      "task-1",
			Prompt:      "a red fox",
			AspectRatio: "16:9",
			Outcome:     OutcomeSucceeded,
			ImageURL:    "http://x/a.png",
			Attempts:    3,
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*GenerationRecord)
	}{
		{"blank prompt", func(r *GenerationRecord) { r.Prompt = " " }},
		{"unknown outcome", func(r *GenerationRecord) { r.Outcome = "pending" }},
		{"success without image", func(r *GenerationRecord) { r.ImageURL = "" }},
		{"negative attempts", func(r *GenerationRecord) { r.Attempts = -1 }},
		{"negative elapsed", func(r *GenerationRecord) { r.Elapsed = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidEntity)
		})
	}

	failedWithoutTask := valid()
	failedWithoutTask.TaskID = ""
	failedWithoutTask.ImageURL = ""
	failedWithoutTask.Outcome = OutcomeFailed
	assert.NoError(t, failedWithoutTask.Validate(), "submission failures have no task id")
}
