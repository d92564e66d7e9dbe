// Package authoring drives the multi-step post creation flow as an
// explicit state machine: each inbound action is a transition on the
// principal's session, validated per step, ending in a Draft post on
// confirm or in nothing at all on cancel.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/models"
	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/generation"
	"github.com/heraldbot/herald/pkg/util"
)

// DraftCreator persists the finished draft. Implemented by the post
// service.
type DraftCreator interface {
	Create(ctx context.Context, draft service.Draft) (*models.Post, error)
}

// Generator produces AI-assisted content for a topic. Implemented by
// the generation adapter.
type Generator interface {
	Generate(ctx context.Context, topic string) (*generation.Generated, error)
}

// Machine owns every live authoring session.
type Machine struct {
	sessions  *registry
	posts     DraftCreator
	generator Generator
	config    *config.AuthoringConfig
	logger    *zap.Logger
}

func NewMachine(cfg *config.AuthoringConfig, posts DraftCreator, generator Generator, logger *zap.Logger) *Machine {
	return &Machine{
		sessions:  newRegistry(),
		posts:     posts,
		generator: generator,
		config:    cfg,
		logger:    logger,
	}
}

// Start opens a new flow for the principal. A second Start without a
// cancel fails with ErrSessionActive.
func (m *Machine) Start(ctx context.Context, principalID int64, username string) (*Session, error) {
	session, ok := m.sessions.create(principalID, username)
	if !ok {
		return nil, service.ErrSessionActive
	}

	m.logger.Info("Authoring session started",
		zap.Int64("principal_id", principalID))
	return session, nil
}

// Cancel tears the session down from any non-terminal step. Nothing is
// persisted.
func (m *Machine) Cancel(ctx context.Context, principalID int64) error {
	if !m.sessions.remove(principalID) {
		return fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	m.logger.Info("Authoring session cancelled",
		zap.Int64("principal_id", principalID))
	return nil
}

// Active returns the principal's session, if any.
func (m *Machine) Active(principalID int64) (*Session, bool) {
	return m.sessions.get(principalID)
}

// Input feeds free text into the current step. Validation failures
// return ErrValidation and leave the step unchanged so the principal is
// re-prompted.
func (m *Machine) Input(ctx context.Context, principalID int64, text string) (*Session, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	text = strings.TrimSpace(text)

	switch session.Step {
	case StepCollectingTitle:
		if text == "" || len([]rune(text)) > m.config.MaxTitleLength {
			return session, fmt.Errorf("%w: title must be 1-%d characters", service.ErrValidation, m.config.MaxTitleLength)
		}
		session.Title = text
		session.Step = StepCollectingBody

	case StepCollectingBody:
		if text == "" || len([]rune(text)) > m.config.MaxBodyLength {
			return session, fmt.Errorf("%w: body must be 1-%d characters", service.ErrValidation, m.config.MaxBodyLength)
		}
		session.Body = text
		session.Step = StepCollectingImage

	case StepCollectingImage:
		// Free text here is not an image; the principal either attaches
		// one or skips.
		return session, fmt.Errorf("%w: send an image or skip this step", service.ErrValidation)

	case StepCollectingTags:
		tags := util.NormalizeTags(util.ParseTags(text))
		if len(tags) == 0 {
			return session, fmt.Errorf("%w: at least one tag is required", service.ErrValidation)
		}
		session.Tags = tags
		session.Step = StepReviewReady

	case StepAwaitingTopic:
		if text == "" {
			return session, fmt.Errorf("%w: topic must not be empty", service.ErrValidation)
		}
		return session, m.generate(ctx, session, text)

	default:
		return session, fmt.Errorf("%w: unexpected input in step %s", service.ErrValidation, session.Step)
	}

	return session, nil
}

// generate runs the AI branch. On failure the session returns to the
// topic prompt until the attempt budget runs out, then falls back to
// manual entry exactly once.
func (m *Machine) generate(ctx context.Context, session *Session, topic string) error {
	session.Step = StepGenerating

	generated, err := m.generator.Generate(ctx, topic)
	if err != nil {
		if !errors.Is(err, service.ErrGenerationUnavailable) {
			err = service.ErrGenerationUnavailable
		}
		session.GenerationAttempts++
		if session.GenerationAttempts >= m.config.MaxGenerationAttempts {
			session.Step = StepCollectingTitle
			m.logger.Warn("Generation attempts exhausted, falling back to manual entry",
				zap.Int64("principal_id", session.PrincipalID),
				zap.Int("attempts", session.GenerationAttempts))
		} else {
			session.Step = StepAwaitingTopic
		}
		return err
	}

	session.Title = generated.Title
	session.Body = generated.Body
	session.Tags = generated.Tags
	session.Step = StepReviewReady

	m.logger.Info("Generated content accepted into session",
		zap.Int64("principal_id", session.PrincipalID),
		zap.Int("attempts", session.GenerationAttempts))
	return nil
}

// UseGeneration switches a fresh flow onto the AI branch.
func (m *Machine) UseGeneration(ctx context.Context, principalID int64) (*Session, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Step != StepCollectingTitle {
		return session, fmt.Errorf("%w: generation is only offered before manual entry begins", service.ErrValidation)
	}
	session.Step = StepAwaitingTopic
	return session, nil
}

// AttachImage records a previously-uploaded media reference for the
// image step.
func (m *Machine) AttachImage(ctx context.Context, principalID int64, imageRef string) (*Session, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Step != StepCollectingImage {
		return session, fmt.Errorf("%w: not waiting for an image", service.ErrValidation)
	}
	if imageRef == "" {
		return session, fmt.Errorf("%w: image reference must not be empty", service.ErrValidation)
	}
	session.ImageRef = imageRef
	session.Step = StepCollectingTags
	return session, nil
}

// SkipImage advances past the optional image step.
func (m *Machine) SkipImage(ctx context.Context, principalID int64) (*Session, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Step != StepCollectingImage {
		return session, fmt.Errorf("%w: not waiting for an image", service.ErrValidation)
	}
	session.Step = StepCollectingTags
	return session, nil
}

// Revisit jumps from review back to one of the collecting steps so the
// principal can edit before confirming. The session survives review.
func (m *Machine) Revisit(ctx context.Context, principalID int64, step Step) (*Session, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Step != StepReviewReady {
		return session, fmt.Errorf("%w: nothing to review yet", service.ErrValidation)
	}
	switch step {
	case StepCollectingTitle, StepCollectingBody, StepCollectingImage, StepCollectingTags:
		session.Step = step
	default:
		return session, fmt.Errorf("%w: cannot revisit step %s", service.ErrValidation, step)
	}
	return session, nil
}

// Confirm materializes the reviewed fields into a Draft post and
// destroys the session. Only an explicit accept ends the flow.
func (m *Machine) Confirm(ctx context.Context, principalID int64) (*models.Post, error) {
	session, ok := m.sessions.get(principalID)
	if !ok {
		return nil, fmt.Errorf("%w: no active session", service.ErrValidation)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Step != StepReviewReady {
		return nil, fmt.Errorf("%w: post is not ready for review", service.ErrValidation)
	}

	post, err := m.posts.Create(ctx, service.Draft{
		Title:          session.Title,
		Body:           session.Body,
		Tags:           session.Tags,
		ImageRef:       session.ImageRef,
		AuthorID:       session.PrincipalID,
		AuthorUsername: session.Username,
	})
	if err != nil {
		return nil, err
	}

	m.sessions.remove(principalID)

	m.logger.Info("Authoring session confirmed",
		zap.Int64("principal_id", principalID),
		zap.Uint("post_id", post.ID))
	return post, nil
}
