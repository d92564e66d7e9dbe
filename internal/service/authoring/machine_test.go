package authoring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/models"
	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/generation"
)

type fakeDraftCreator struct {
	created []service.Draft
	nextID  uint
}

func (f *fakeDraftCreator) Create(_ context.Context, draft service.Draft) (*models.Post, error) {
	f.created = append(f.created, draft)
	f.nextID++
	return &models.Post{
		ID:       f.nextID,
		Title:    draft.Title,
		Body:     draft.Body,
		Tags:     draft.Tags,
		ImageRef: draft.ImageRef,
		Status:   models.PostStatusDraft,
		AuthorID: draft.AuthorID,
	}, nil
}

type fakeGenerator struct {
	result *generation.Generated
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (*generation.Generated, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newMachineFixture(gen *fakeGenerator) (*Machine, *fakeDraftCreator) {
	posts := &fakeDraftCreator{}
	cfg := &config.AuthoringConfig{
		MaxGenerationAttempts: 3,
		MaxTitleLength:        255,
		MaxBodyLength:         1000,
	}
	return NewMachine(cfg, posts, gen, zap.NewNop()), posts
}

func TestManualFlowRoundTrip(t *testing.T) {
	machine, posts := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	session, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingTitle, session.Step)

	session, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingBody, session.Step)

	session, err = machine.Input(ctx, 42, "50% off")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingImage, session.Step)

	session, err = machine.SkipImage(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepCollectingTags, session.Step)

	session, err = machine.Input(ctx, 42, "promo")
	require.NoError(t, err)
	assert.Equal(t, StepReviewReady, session.Step)

	post, err := machine.Confirm(ctx, 42)
	require.NoError(t, err)

	// Exactly one draft, matching the collected fields.
	require.Len(t, posts.created, 1)
	assert.Equal(t, "Sale", post.Title)
	assert.Equal(t, "50% off", post.Body)
	assert.Equal(t, []string{"#promo"}, []string(post.Tags))
	assert.Equal(t, int64(42), post.AuthorID)
	assert.Equal(t, models.PostStatusDraft, post.Status)

	// The session is gone once confirmed.
	_, active := machine.Active(42)
	assert.False(t, active)
}

func TestCancelPersistsNothing(t *testing.T) {
	machine, posts := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "50% off")
	require.NoError(t, err)

	require.NoError(t, machine.Cancel(ctx, 42))

	assert.Empty(t, posts.created)
	_, active := machine.Active(42)
	assert.False(t, active)
}

func TestValidationRepromptsSameStep(t *testing.T) {
	machine, _ := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)

	session, err := machine.Input(ctx, 42, "  ")
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, StepCollectingTitle, session.Step)

	_, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)

	// Body over the 1000-char bound is rejected without advancing.
	session, err = machine.Input(ctx, 42, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, StepCollectingBody, session.Step)
}

func TestSecondStartFailsUntilCancel(t *testing.T) {
	machine, _ := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)

	_, err = machine.Start(ctx, 42, "mod")
	assert.ErrorIs(t, err, service.ErrSessionActive)

	require.NoError(t, machine.Cancel(ctx, 42))
	_, err = machine.Start(ctx, 42, "mod")
	assert.NoError(t, err)
}

func TestGenerationSuccessFillsSession(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Generated{
		Title: "Three desk hacks",
		Body:  "Try these today.",
		Tags:  []string{"#productivity", "#hacks"},
	}}
	machine, posts := newMachineFixture(gen)
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)
	_, err = machine.UseGeneration(ctx, 42)
	require.NoError(t, err)

	session, err := machine.Input(ctx, 42, "desk setups")
	require.NoError(t, err)
	assert.Equal(t, StepReviewReady, session.Step)
	assert.Equal(t, "Three desk hacks", session.Title)

	_, err = machine.Confirm(ctx, 42)
	require.NoError(t, err)
	require.Len(t, posts.created, 1)
	assert.Equal(t, "Try these today.", posts.created[0].Body)
}

func TestGenerationFallbackAfterMaxAttempts(t *testing.T) {
	gen := &fakeGenerator{err: service.ErrGenerationUnavailable}
	machine, _ := newMachineFixture(gen)
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)
	_, err = machine.UseGeneration(ctx, 42)
	require.NoError(t, err)

	// First two failures return to the topic prompt.
	for i := 0; i < 2; i++ {
		session, err := machine.Input(ctx, 42, "desk setups")
		assert.ErrorIs(t, err, service.ErrGenerationUnavailable)
		assert.Equal(t, StepAwaitingTopic, session.Step)
	}

	// The third failure falls back to manual entry, not the fourth.
	session, err := machine.Input(ctx, 42, "desk setups")
	assert.ErrorIs(t, err, service.ErrGenerationUnavailable)
	assert.Equal(t, StepCollectingTitle, session.Step)
	assert.Equal(t, 3, gen.calls)

	// Manual entry proceeds normally from here.
	session, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingBody, session.Step)
}

func TestRevisitBeforeConfirm(t *testing.T) {
	machine, posts := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "50% off")
	require.NoError(t, err)
	_, err = machine.SkipImage(ctx, 42)
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "promo")
	require.NoError(t, err)

	// Review does not destroy the session; the title can be reworked.
	session, err := machine.Revisit(ctx, 42, StepCollectingTitle)
	require.NoError(t, err)
	assert.Equal(t, StepCollectingTitle, session.Step)

	session, err = machine.Input(ctx, 42, "Big sale")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingBody, session.Step)

	_, err = machine.Input(ctx, 42, "Everything half price")
	require.NoError(t, err)
	_, err = machine.SkipImage(ctx, 42)
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "promo sale")
	require.NoError(t, err)

	post, err := machine.Confirm(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Big sale", post.Title)
	require.Len(t, posts.created, 1)
}

func TestAttachImageOnlyInImageStep(t *testing.T) {
	machine, _ := newMachineFixture(&fakeGenerator{})
	ctx := context.Background()

	_, err := machine.Start(ctx, 42, "mod")
	require.NoError(t, err)

	_, err = machine.AttachImage(ctx, 42, "file-123")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = machine.Input(ctx, 42, "Sale")
	require.NoError(t, err)
	_, err = machine.Input(ctx, 42, "50% off")
	require.NoError(t, err)

	session, err := machine.AttachImage(ctx, 42, "file-123")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingTags, session.Step)
	assert.Equal(t, "file-123", session.ImageRef)
}
