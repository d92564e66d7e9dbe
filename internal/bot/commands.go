package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heraldbot/herald/internal/models"
	"github.com/heraldbot/herald/internal/service"
)

func (r *Router) handleRoleCommand(ctx context.Context, chatID, actorID int64, command string, args []string) error {
	switch command {
	case "grant", "revoke":
		if len(args) != 2 {
			r.reply(ctx, chatID, "Usage: /"+command+" <user_id> <administrator|content_manager>")
			return nil
		}
		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: user id must be a number", service.ErrValidation)
		}
		role := models.Role(args[1])

		if command == "grant" {
			if _, err := r.roles.Grant(ctx, targetID, role, actorID); err != nil {
				return err
			}
			r.reply(ctx, chatID, fmt.Sprintf("Granted %s to user %d.", role, targetID))
		} else {
			if err := r.roles.Revoke(ctx, targetID, role, actorID); err != nil {
				return err
			}
			r.reply(ctx, chatID, fmt.Sprintf("Revoked %s from user %d.", role, targetID))
		}
		return nil

	case "roles":
		if len(args) != 1 {
			r.reply(ctx, chatID, "Usage: /roles <user_id>")
			return nil
		}
		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: user id must be a number", service.ErrValidation)
		}

		history, err := r.roles.History(ctx, targetID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			r.reply(ctx, chatID, fmt.Sprintf("User %d has never held a role.", targetID))
			return nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Role history for user %d:\n", targetID)
		for _, a := range history {
			state := "active"
			if !a.Active() {
				state = "revoked " + a.RevokedAt.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "- %s, granted %s by %d (%s)\n",
				a.Role, a.AssignedAt.Format("2006-01-02"), a.AssignedBy, state)
		}
		r.reply(ctx, chatID, b.String())
		return nil
	}
	return nil
}

func (r *Router) handleChannelCommand(ctx context.Context, chatID, actorID int64, command string, args []string) error {
	switch command {
	case "addchannel":
		if len(args) < 2 {
			r.reply(ctx, chatID, "Usage: /addchannel <chat_id> <title>")
			return nil
		}
		channelChatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: chat id must be a number", service.ErrValidation)
		}
		title := strings.Join(args[1:], " ")

		channel, err := r.channels.Add(ctx, channelChatID, title, "", actorID)
		if err != nil {
			return err
		}
		note := ""
		if channel.IsDefault {
			note = " It is now the default channel."
		}
		r.reply(ctx, chatID, fmt.Sprintf("Channel %q registered as #%d.%s", title, channel.ID, note))
		return nil

	case "rmchannel":
		id, err := parseID(args)
		if err != nil {
			r.reply(ctx, chatID, "Usage: /rmchannel <channel_id>")
			return nil
		}
		if err := r.channels.Remove(ctx, id); err != nil {
			return err
		}
		r.reply(ctx, chatID, fmt.Sprintf("Channel #%d removed.", id))
		return nil

	case "setdefault":
		id, err := parseID(args)
		if err != nil {
			r.reply(ctx, chatID, "Usage: /setdefault <channel_id>")
			return nil
		}
		if err := r.channels.SetDefault(ctx, id); err != nil {
			return err
		}
		r.reply(ctx, chatID, fmt.Sprintf("Channel #%d is now the default.", id))
		return nil

	case "channels":
		channels, err := r.channels.List(ctx)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			r.reply(ctx, chatID, "No channels registered yet. Use /addchannel.")
			return nil
		}

		var b strings.Builder
		b.WriteString("Registered channels:\n")
		for _, c := range channels {
			marker := ""
			if c.IsDefault {
				marker = " (default)"
			}
			fmt.Fprintf(&b, "- #%d %s%s\n", c.ID, c.Title, marker)
		}
		r.reply(ctx, chatID, b.String())
		return nil
	}
	return nil
}

func (r *Router) handlePublishCommand(ctx context.Context, chatID int64, command string, args []string) error {
	switch command {
	case "publish":
		if len(args) < 1 {
			r.reply(ctx, chatID, "Usage: /publish <post_id> [channel_id]")
			return nil
		}
		postID, err := parseID(args[:1])
		if err != nil {
			return fmt.Errorf("%w: post id must be a number", service.ErrValidation)
		}
		var channelID uint
		if len(args) > 1 {
			channelID, err = parseID(args[1:2])
			if err != nil {
				return fmt.Errorf("%w: channel id must be a number", service.ErrValidation)
			}
		}

		post, err := r.publication.PublishNow(ctx, postID, channelID)
		if err != nil {
			return err
		}
		r.reply(ctx, chatID, fmt.Sprintf("Post #%d published at %s.", post.ID, post.PublishedAt.Format(time.RFC3339)))
		return nil

	case "schedule":
		if len(args) < 2 {
			r.reply(ctx, chatID, "Usage: /schedule <post_id> <2006-01-02T15:04:05Z> [channel_id]")
			return nil
		}
		postID, err := parseID(args[:1])
		if err != nil {
			return fmt.Errorf("%w: post id must be a number", service.ErrValidation)
		}
		at, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return fmt.Errorf("%w: time must look like 2006-01-02T15:04:05Z", service.ErrValidation)
		}
		var channelID uint
		if len(args) > 2 {
			channelID, err = parseID(args[2:3])
			if err != nil {
				return fmt.Errorf("%w: channel id must be a number", service.ErrValidation)
			}
		}

		post, err := r.publication.Schedule(ctx, postID, channelID, at)
		if err != nil {
			return err
		}
		r.reply(ctx, chatID, fmt.Sprintf("Post #%d scheduled for %s.", post.ID, at.Format(time.RFC3339)))
		return nil
	}
	return nil
}

func (r *Router) handleListPosts(ctx context.Context, chatID int64, args []string) error {
	filter := service.PostFilter{Limit: 20}
	if len(args) > 0 {
		filter.Status = models.PostStatus(args[0])
	}

	posts, err := r.posts.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		r.reply(ctx, chatID, "No posts found.")
		return nil
	}

	var b strings.Builder
	b.WriteString("Posts:\n")
	for _, p := range posts {
		fmt.Fprintf(&b, "- #%d [%s] %s\n", p.ID, p.Status, p.Title)
	}
	r.reply(ctx, chatID, b.String())
	return nil
}

func (r *Router) handleDeletePost(ctx context.Context, chatID, actorID int64, args []string) error {
	id, err := parseID(args)
	if err != nil {
		r.reply(ctx, chatID, "Usage: /delete <post_id>")
		return nil
	}
	if err := r.publication.Delete(ctx, id, actorID); err != nil {
		return err
	}
	r.reply(ctx, chatID, fmt.Sprintf("Post #%d deleted.", id))
	return nil
}

func parseID(args []string) (uint, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one id")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
