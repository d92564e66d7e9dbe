package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from PostStatus
		to   PostStatus
		ok   bool
	}{
		{PostStatusDraft, PostStatusScheduled, true},
		{PostStatusDraft, PostStatusPublished, true},
		{PostStatusDraft, PostStatusCancelled, true},
		{PostStatusScheduled, PostStatusPublished, true},
		{PostStatusScheduled, PostStatusDraft, false},
		{PostStatusScheduled, PostStatusCancelled, false},
		{PostStatusPublished, PostStatusDraft, false},
		{PostStatusPublished, PostStatusScheduled, false},
		{PostStatusPublished, PostStatusCancelled, false},
		{PostStatusCancelled, PostStatusDraft, false},
		{PostStatusCancelled, PostStatusPublished, false},
		{PostStatusDraft, PostStatusDraft, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	value, err := StringArray{"#promo", "#sale"}.Value()
	assert.NoError(t, err)

	var scanned StringArray
	assert.NoError(t, scanned.Scan(value.(string)))
	assert.Equal(t, StringArray{"#promo", "#sale"}, scanned)
}

func TestStringArrayScanEmpty(t *testing.T) {
	var s StringArray
	assert.NoError(t, s.Scan("{}"))
	assert.Empty(t, s)

	assert.NoError(t, s.Scan(nil))
	assert.Empty(t, s)
}
