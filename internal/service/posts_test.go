package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heraldbot/herald/internal/models"
)

const (
	testMaxTitleLen = 255
	testMaxBodyLen  = 1000
)

func strPtr(s string) *string { return &s }

func statusPtr(s models.PostStatus) *models.PostStatus { return &s }

func TestValidatePostUpdateRejectsBackwardStatus(t *testing.T) {
	post := &models.Post{Status: models.PostStatusPublished}

	err := validatePostUpdate(post, PostUpdate{Status: statusPtr(models.PostStatusDraft)}, testMaxTitleLen, testMaxBodyLen)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	post.Status = models.PostStatusScheduled
	err = validatePostUpdate(post, PostUpdate{Status: statusPtr(models.PostStatusDraft)}, testMaxTitleLen, testMaxBodyLen)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidatePostUpdatePublishedContentImmutable(t *testing.T) {
	post := &models.Post{Status: models.PostStatusPublished}

	assert.ErrorIs(t, validatePostUpdate(post, PostUpdate{Title: strPtr("new")}, testMaxTitleLen, testMaxBodyLen), ErrInvalidTransition)
	assert.ErrorIs(t, validatePostUpdate(post, PostUpdate{Body: strPtr("new")}, testMaxTitleLen, testMaxBodyLen), ErrInvalidTransition)
	assert.ErrorIs(t, validatePostUpdate(post, PostUpdate{ImageRef: strPtr("ref")}, testMaxTitleLen, testMaxBodyLen), ErrInvalidTransition)

	// Tags stay editable after publication.
	assert.NoError(t, validatePostUpdate(post, PostUpdate{Tags: []string{"#promo"}}, testMaxTitleLen, testMaxBodyLen))
}

func TestValidatePostUpdateDraftIsFreelyEditable(t *testing.T) {
	post := &models.Post{Status: models.PostStatusDraft}

	assert.NoError(t, validatePostUpdate(post, PostUpdate{
		Title:  strPtr("new title"),
		Body:   strPtr("new body"),
		Status: statusPtr(models.PostStatusCancelled),
	}, testMaxTitleLen, testMaxBodyLen))
}

func TestValidatePostUpdateCancelOnlyFromDraft(t *testing.T) {
	post := &models.Post{Status: models.PostStatusScheduled}
	err := validatePostUpdate(post, PostUpdate{Status: statusPtr(models.PostStatusCancelled)}, testMaxTitleLen, testMaxBodyLen)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidatePostUpdateEnforcesLengthBounds(t *testing.T) {
	post := &models.Post{Status: models.PostStatusDraft}

	longBody := strings.Repeat("x", testMaxBodyLen+1)
	err := validatePostUpdate(post, PostUpdate{Body: &longBody}, testMaxTitleLen, testMaxBodyLen)
	assert.ErrorIs(t, err, ErrValidation)

	longTitle := strings.Repeat("x", testMaxTitleLen+1)
	err = validatePostUpdate(post, PostUpdate{Title: &longTitle}, testMaxTitleLen, testMaxBodyLen)
	assert.ErrorIs(t, err, ErrValidation)

	// Limits count runes, not bytes, and values exactly at the bound pass.
	atBody := strings.Repeat("й", testMaxBodyLen)
	atTitle := strings.Repeat("й", testMaxTitleLen)
	assert.NoError(t, validatePostUpdate(post, PostUpdate{Title: &atTitle, Body: &atBody}, testMaxTitleLen, testMaxBodyLen))
}

func TestValidatePostUpdateRejectsEmptyContent(t *testing.T) {
	post := &models.Post{Status: models.PostStatusDraft}

	assert.ErrorIs(t, validatePostUpdate(post, PostUpdate{Title: strPtr("")}, testMaxTitleLen, testMaxBodyLen), ErrValidation)
	assert.ErrorIs(t, validatePostUpdate(post, PostUpdate{Body: strPtr("")}, testMaxTitleLen, testMaxBodyLen), ErrValidation)
}
