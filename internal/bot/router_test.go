package bot

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/authoring"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input   string
		command string
		args    []string
	}{
		{"/newpost", "newpost", []string{}},
		{"/publish 3 1", "publish", []string{"3", "1"}},
		{"/PUBLISH 3", "publish", []string{"3"}},
		{"/grant@herald_bot 42 administrator", "grant", []string{"42", "administrator"}},
	}

	for _, tt := range tests {
		command, args := splitCommand(tt.input)
		assert.Equal(t, tt.command, command)
		assert.Equal(t, tt.args, args)
	}
}

func TestUserMessageNeverLeaksInternals(t *testing.T) {
	wrapped := fmt.Errorf("update post 17: %w", errors.New("pq: connection refused host=10.0.0.3"))
	msg := userMessage(wrapped)
	assert.NotContains(t, msg, "pq:")
	assert.NotContains(t, msg, "10.0.0.3")
}

func TestUserMessagePerSentinel(t *testing.T) {
	tests := []struct {
		err      error
		contains string
	}{
		{service.ErrDuplicateRole, "already holds"},
		{service.ErrNoActiveRole, "does not hold"},
		{service.ErrSessionActive, "in progress"},
		{service.ErrChannelNotFound, "channel"},
		{service.ErrPostNotFound, "post"},
		{service.ErrAlreadyPublished, "already been published"},
		{service.ErrInvalidTransition, "not allowed"},
		{service.ErrGenerationUnavailable, "assistant is unavailable"},
		{service.ErrPublishFailed, "was not changed"},
	}

	for _, tt := range tests {
		assert.Contains(t, userMessage(tt.err), tt.contains)
	}
}

func TestUserMessageValidationKeepsHint(t *testing.T) {
	err := fmt.Errorf("%w: title must be 1-255 characters", service.ErrValidation)
	assert.Contains(t, userMessage(err), "title must be 1-255 characters")
}

func TestStepPrompts(t *testing.T) {
	session := &authoring.Session{Step: authoring.StepCollectingTitle}
	assert.Contains(t, stepPrompt(session), "title")

	session.Step = authoring.StepCollectingImage
	assert.Contains(t, stepPrompt(session), "/skip")

	session.Step = authoring.StepReviewReady
	session.Title = "Sale"
	session.Body = "50% off"
	session.Tags = []string{"#promo"}
	prompt := stepPrompt(session)
	assert.Contains(t, prompt, "Sale")
	assert.Contains(t, prompt, "/confirm")
}
