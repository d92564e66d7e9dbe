package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/models"
	"github.com/heraldbot/herald/internal/service"
)

// Admin API handlers. Mutations act as the bootstrap administrator;
// the TOTP middleware already proved possession of the admin secret.

func (s *Server) handleRoleHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	history, err := s.Roles.History(c.Request.Context(), userID)
	if err != nil {
		s.Logger.Error("Failed to load role history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

type roleRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (s *Server) handleGrantRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and role are required"})
		return
	}

	assignment, err := s.Roles.Grant(c.Request.Context(), req.UserID, models.Role(req.Role), s.Config.Admin.BootstrapID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

func (s *Server) handleRevokeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and role are required"})
		return
	}

	if err := s.Roles.Revoke(c.Request.Context(), req.UserID, models.Role(req.Role), s.Config.Admin.BootstrapID); err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleListChannels(c *gin.Context) {
	channels, err := s.Channels.List(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to list channels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type addChannelRequest struct {
	ChatID   int64  `json:"chat_id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Username string `json:"username"`
}

func (s *Server) handleAddChannel(c *gin.Context) {
	var req addChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id and title are required"})
		return
	}

	channel, err := s.Channels.Add(c.Request.Context(), req.ChatID, req.Title, req.Username, s.Config.Admin.BootstrapID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

func (s *Server) handleSetDefaultChannel(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
		return
	}

	if err := s.Channels.SetDefault(c.Request.Context(), id); err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveChannel(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
		return
	}

	if err := s.Channels.Remove(c.Request.Context(), id); err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPosts(c *gin.Context) {
	filter := service.PostFilter{
		Status: models.PostStatus(c.Query("status")),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	posts, err := s.Posts.List(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("Failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) handleGetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	post, err := s.Posts.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

type updatePostRequest struct {
	Title    *string  `json:"title"`
	Body     *string  `json:"body"`
	Tags     []string `json:"tags"`
	ImageRef *string  `json:"image_ref"`
	Status   *string  `json:"status"`
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed post update"})
		return
	}

	update := service.PostUpdate{
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
		ImageRef: req.ImageRef,
		EditedBy: &s.Config.Admin.BootstrapID,
	}
	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		update.Status = &status
	}

	post, err := s.Posts.Update(c.Request.Context(), id, update)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	// Tag edits on a Published post re-render the channel message, best
	// effort: the repository already holds the new tags.
	if post.Status == models.PostStatusPublished && req.Tags != nil {
		if err := s.Publication.SyncChannelMessage(c.Request.Context(), id); err != nil {
			s.Logger.Warn("Channel message sync failed after update",
				zap.Uint("post_id", id),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	if err := s.Publication.Delete(c.Request.Context(), id, s.Config.Admin.BootstrapID); err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handlePublishPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var channelID uint
	if raw := c.Query("channel_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
			return
		}
		channelID = uint(parsed)
	}

	post, err := s.Publication.PublishNow(c.Request.Context(), id, channelID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (s *Server) handleRunDue(c *gin.Context) {
	outcomes, err := s.Publication.RunDueSchedules(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to run due schedules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run due schedules"})
		return
	}

	published, failed := 0, 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		} else {
			published++
		}
	}
	c.JSON(http.StatusOK, gin.H{"published": published, "failed": failed})
}

// respondServiceError maps the service error taxonomy onto HTTP codes
// without leaking internals.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, service.ErrDuplicateRole),
		errors.Is(err, service.ErrAlreadyPublished),
		errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting state"})
	case errors.Is(err, service.ErrNoActiveRole),
		errors.Is(err, service.ErrChannelNotFound),
		errors.Is(err, service.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrPublishFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Publish failed"})
	default:
		s.Logger.Error("Admin API operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
