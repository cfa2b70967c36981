package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/kaya2m/Camply-API-sub003/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler interface {
	GetConversations(c *gin.Context)
	GetOrCreateDirectConversation(c *gin.Context)
	CreateGroupConversation(c *gin.Context)
	GetConversationMessages(c *gin.Context)
	SearchConversationMessages(c *gin.Context)
	GetConversationMedia(c *gin.Context)
	MuteConversation(c *gin.Context)
	ArchiveConversation(c *gin.Context)
	DeleteConversation(c *gin.Context)
}

type messageHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
}

func NewMessageHandler(conversations service.ConversationService, messages service.MessageService) MessageHandler {
	return &messageHandler{
		conversations: conversations,
		messages:      messages,
	}
}

// GetConversations returns the caller's conversations ordered by recency.
func (h *messageHandler) GetConversations(c *gin.Context) {
	userID := c.GetString("userId")

	conversations, err := h.conversations.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
	})
}

type directConversationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// GetOrCreateDirectConversation resolves the single conversation between the
// caller and another user.
func (h *messageHandler) GetOrCreateDirectConversation(c *gin.Context) {
	userID := c.GetString("userId")

	var req directConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	conversation, err := h.conversations.GetOrCreateDirect(c.Request.Context(), userID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conversation,
	})
}

type groupConversationRequest struct {
	Title          string   `json:"title" binding:"required"`
	ParticipantIDs []string `json:"participantIds" binding:"required"`
	ImageURL       string   `json:"imageUrl"`
}

func (h *messageHandler) CreateGroupConversation(c *gin.Context) {
	userID := c.GetString("userId")

	var req groupConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and participantIds are required"})
		return
	}

	conversation, err := h.conversations.CreateGroup(c.Request.Context(), userID, req.ParticipantIDs, req.Title, req.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"conversation": conversation,
	})
}

func (h *messageHandler) GetConversationMessages(c *gin.Context) {
	userID := c.GetString("userId")
	conversationID := c.Param("conversationId")
	page, ok := parsePage(c)
	if !ok {
		return
	}

	result, err := h.messages.ListMessages(c.Request.Context(), userID, conversationID, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

func (h *messageHandler) SearchConversationMessages(c *gin.Context) {
	userID := c.GetString("userId")
	conversationID := c.Param("conversationId")
	query := c.Query("q")
	page, ok := parsePage(c)
	if !ok {
		return
	}

	result, err := h.messages.SearchMessages(c.Request.Context(), userID, conversationID, query, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

func (h *messageHandler) GetConversationMedia(c *gin.Context) {
	userID := c.GetString("userId")
	conversationID := c.Param("conversationId")
	page, ok := parsePage(c)
	if !ok {
		return
	}

	result, err := h.messages.ListMediaMessages(c.Request.Context(), userID, conversationID, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

type flagRequest struct {
	Value bool `json:"value"`
}

func (h *messageHandler) MuteConversation(c *gin.Context) {
	h.setFlag(c, h.conversations.MuteConversation)
}

func (h *messageHandler) ArchiveConversation(c *gin.Context) {
	h.setFlag(c, h.conversations.ArchiveConversation)
}

func (h *messageHandler) setFlag(c *gin.Context, set func(ctx context.Context, userID, conversationID string, value bool) error) {
	userID := c.GetString("userId")
	conversationID := c.Param("conversationId")

	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := set(c.Request.Context(), userID, conversationID, req.Value); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *messageHandler) DeleteConversation(c *gin.Context) {
	userID := c.GetString("userId")
	conversationID := c.Param("conversationId")

	if err := h.conversations.DeleteConversation(c.Request.Context(), userID, conversationID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

func parsePage(c *gin.Context) (int64, bool) {
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid page number",
		})
		return 0, false
	}
	return pageNumber, true
}
