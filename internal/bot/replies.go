package bot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/authoring"
)

const helpText = `Herald keeps your channels fed.

Posting:
/newpost - start a new post
/generate - let the assistant draft it
/skip - skip the image step
/edit title|body|image|tags - rework a step before confirming
/confirm - save the reviewed draft
/cancel - abort the current post

Publishing:
/posts [status] - list posts
/publish <post_id> [channel_id] - publish now
/schedule <post_id> <time> [channel_id] - publish later
/delete <post_id> - delete a post

Administration:
/grant /revoke /roles - manage roles
/addchannel /rmchannel /setdefault /channels - manage channels`

// stepPrompt tells the principal what the machine expects next.
func stepPrompt(session *authoring.Session) string {
	switch session.Step {
	case authoring.StepCollectingTitle:
		return "Send the title for your post."
	case authoring.StepCollectingBody:
		return "Title saved. Now send the post text (up to 1000 characters)."
	case authoring.StepCollectingImage:
		return "Text saved. Send an image for the post, or /skip."
	case authoring.StepCollectingTags:
		return "Now send the tags, separated by spaces or commas."
	case authoring.StepAwaitingTopic:
		return "What should the post be about? Send a topic."
	case authoring.StepReviewReady:
		return reviewSummary(session)
	default:
		return "Working on it..."
	}
}

func reviewSummary(session *authoring.Session) string {
	var b strings.Builder
	b.WriteString("Here is your post:\n\n")
	b.WriteString(session.Title)
	b.WriteString("\n\n")
	b.WriteString(session.Body)
	if len(session.Tags) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(session.Tags, " "))
	}
	if session.ImageRef != "" {
		b.WriteString("\n\n(with image)")
	}
	b.WriteString("\n\n/confirm to save, /edit <step> to rework, /cancel to drop it.")
	return b.String()
}

// userMessage maps the error taxonomy to a reply that leaks no internal
// identifiers or stack detail.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		// Validation messages are written for the user already; strip
		// the sentinel prefix.
		msg := err.Error()
		if cut := strings.TrimPrefix(msg, service.ErrValidation.Error()+": "); cut != msg {
			return "That did not work: " + cut
		}
		return "That did not work. Check your input and try again."
	case errors.Is(err, service.ErrDuplicateRole):
		return "That user already holds this role."
	case errors.Is(err, service.ErrNoActiveRole):
		return "That user does not hold this role."
	case errors.Is(err, service.ErrSessionActive):
		return "You already have a post in progress. /cancel it first."
	case errors.Is(err, service.ErrChannelNotFound):
		return "No such channel. /channels lists the registered ones."
	case errors.Is(err, service.ErrPostNotFound):
		return "No such post. /posts lists what exists."
	case errors.Is(err, service.ErrAlreadyPublished):
		return "That post has already been published."
	case errors.Is(err, service.ErrInvalidTransition):
		return "That change is not allowed for the post's current status."
	case errors.Is(err, service.ErrGenerationUnavailable):
		return "The writing assistant is unavailable right now. Try the topic again or enter the post manually."
	case errors.Is(err, service.ErrPublishFailed):
		return "Publishing failed. The post was not changed; try again in a moment."
	default:
		return "Something went wrong. Try again."
	}
}

// replyError logs the failure with audit context and sends the mapped
// user-facing message.
func (r *Router) replyError(ctx context.Context, chatID, principalID int64, operation string, err error) {
	r.logger.Warn("Action failed",
		zap.Int64("principal_id", principalID),
		zap.String("operation", operation),
		zap.Error(err))
	r.reply(ctx, chatID, userMessage(err))
}
