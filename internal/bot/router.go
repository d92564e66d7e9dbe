// Package bot routes inbound Telegram updates: it resolves the acting
// principal, runs the access guard, and dispatches commands and free
// text into the services and the authoring state machine.
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/authoring"
	"github.com/heraldbot/herald/internal/telegram"
)

// Replier sends responses back to the acting principal's chat.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
}

type Router struct {
	guard       *service.Guard
	roles       *service.RoleService
	channels    *service.ChannelService
	posts       *service.PostService
	publication *service.PublicationService
	machine     *authoring.Machine
	replier     Replier
	logger      *zap.Logger
}

func NewRouter(
	guard *service.Guard,
	roles *service.RoleService,
	channels *service.ChannelService,
	posts *service.PostService,
	publication *service.PublicationService,
	machine *authoring.Machine,
	replier Replier,
	logger *zap.Logger,
) *Router {
	return &Router{
		guard:       guard,
		roles:       roles,
		channels:    channels,
		posts:       posts,
		publication: publication,
		machine:     machine,
		replier:     replier,
		logger:      logger,
	}
}

// HandleUpdate processes one inbound update end to end. Every reply and
// denial goes back to the chat the update came from.
func (r *Router) HandleUpdate(ctx context.Context, update *telegram.Update) {
	msg := update.Message
	if msg == nil && update.CallbackQuery != nil {
		msg = update.CallbackQuery.Message
		if msg != nil && update.CallbackQuery.From != nil {
			// Callback presses act as the pressing user, not the bot
			// that owns the message.
			msg = &telegram.Message{
				MessageID: msg.MessageID,
				From:      update.CallbackQuery.From,
				Chat:      msg.Chat,
				Text:      update.CallbackQuery.Data,
			}
		}
	}
	if msg == nil || msg.From == nil {
		return
	}

	principal := msg.From
	chatID := msg.Chat.ID

	if err := r.roles.EnsureUser(ctx, principal.ID, principal.Username, principal.FullName()); err != nil {
		r.logger.Warn("Failed to record user profile",
			zap.Int64("principal_id", principal.ID),
			zap.Error(err))
	}

	// Photos feed the image step of an active authoring flow.
	if len(msg.Photo) > 0 {
		r.handlePhoto(ctx, chatID, principal.ID, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		command, args := splitCommand(text)
		r.handleCommand(ctx, chatID, principal, command, args)
		return
	}

	r.handleFreeText(ctx, chatID, principal.ID, text)
}

// splitCommand separates "/publish 3 1" into "publish" and its args,
// stripping an optional @botname suffix.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, principal *telegram.User, command string, args []string) {
	switch command {
	case "start", "help":
		r.reply(ctx, chatID, helpText)

	case "newpost":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapCreatePost, func() error {
			_, err := r.machine.Start(ctx, principal.ID, principal.Username)
			if err != nil {
				return err
			}
			r.reply(ctx, chatID, "New post started. Send the title, or /generate to let the assistant draft it. /cancel aborts.")
			return nil
		})

	case "generate":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapCreatePost, func() error {
			_, err := r.machine.UseGeneration(ctx, principal.ID)
			if err != nil {
				return err
			}
			r.reply(ctx, chatID, "What should the post be about? Send a topic.")
			return nil
		})

	case "skip":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapCreatePost, func() error {
			_, err := r.machine.SkipImage(ctx, principal.ID)
			if err != nil {
				return err
			}
			r.reply(ctx, chatID, "Skipped the image. Now send the tags, separated by spaces or commas.")
			return nil
		})

	case "cancel":
		if err := r.machine.Cancel(ctx, principal.ID); err != nil {
			r.replyError(ctx, chatID, principal.ID, "cancel", err)
			return
		}
		r.reply(ctx, chatID, "Post creation cancelled. Nothing was saved.")

	case "confirm":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapCreatePost, func() error {
			post, err := r.machine.Confirm(ctx, principal.ID)
			if err != nil {
				return err
			}
			r.reply(ctx, chatID, "Draft saved as post #"+itoa(post.ID)+". Use /publish "+itoa(post.ID)+" when ready.")
			return nil
		})

	case "edit":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapEditPost, func() error {
			return r.revisit(ctx, chatID, principal.ID, args)
		})

	case "grant", "revoke", "roles":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapManageRoles, func() error {
			return r.handleRoleCommand(ctx, chatID, principal.ID, command, args)
		})

	case "addchannel", "rmchannel", "setdefault", "channels":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapManageChannels, func() error {
			return r.handleChannelCommand(ctx, chatID, principal.ID, command, args)
		})

	case "publish", "schedule":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapPublishPost, func() error {
			return r.handlePublishCommand(ctx, chatID, command, args)
		})

	case "posts":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapListPosts, func() error {
			return r.handleListPosts(ctx, chatID, args)
		})

	case "delete":
		r.requireAndRun(ctx, chatID, principal.ID, service.CapDeletePost, func() error {
			return r.handleDeletePost(ctx, chatID, principal.ID, args)
		})

	default:
		r.reply(ctx, chatID, "Unknown command. Send /help for the list.")
	}
}

// requireAndRun gates an action on a capability and maps any failure
// into a user-facing reply.
func (r *Router) requireAndRun(ctx context.Context, chatID, principalID int64, capability service.Capability, action func() error) {
	if !r.guard.Authorize(ctx, principalID, capability) {
		r.reply(ctx, chatID, "You are not allowed to do that.")
		return
	}
	if err := action(); err != nil {
		r.replyError(ctx, chatID, principalID, string(capability), err)
	}
}

func (r *Router) handleFreeText(ctx context.Context, chatID, principalID int64, text string) {
	if _, ok := r.machine.Active(principalID); !ok {
		return
	}

	session, err := r.machine.Input(ctx, principalID, text)
	if err != nil {
		r.replyError(ctx, chatID, principalID, "authoring_input", err)
		if session != nil && session.Step == authoring.StepCollectingTitle && session.GenerationAttempts > 0 {
			r.reply(ctx, chatID, "Switching to manual entry. Send the title for your post.")
		}
		return
	}
	r.reply(ctx, chatID, stepPrompt(session))
}

func (r *Router) handlePhoto(ctx context.Context, chatID, principalID int64, msg *telegram.Message) {
	if _, ok := r.machine.Active(principalID); !ok {
		return
	}

	// The largest size is the last entry.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	session, err := r.machine.AttachImage(ctx, principalID, fileID)
	if err != nil {
		r.replyError(ctx, chatID, principalID, "authoring_image", err)
		return
	}
	r.reply(ctx, chatID, stepPrompt(session))
}

func (r *Router) revisit(ctx context.Context, chatID, principalID int64, args []string) error {
	if len(args) != 1 {
		r.reply(ctx, chatID, "Usage: /edit title|body|image|tags")
		return nil
	}

	var step authoring.Step
	switch args[0] {
	case "title":
		step = authoring.StepCollectingTitle
	case "body":
		step = authoring.StepCollectingBody
	case "image":
		step = authoring.StepCollectingImage
	case "tags":
		step = authoring.StepCollectingTags
	default:
		r.reply(ctx, chatID, "Usage: /edit title|body|image|tags")
		return nil
	}

	session, err := r.machine.Revisit(ctx, principalID, step)
	if err != nil {
		return err
	}
	r.reply(ctx, chatID, stepPrompt(session))
	return nil
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.replier.SendMessage(ctx, chatID, text); err != nil {
		r.logger.Error("Failed to send reply",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
