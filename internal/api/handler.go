package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/chat"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/models"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/ratelimit"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/worker"
)

// Caller-facing messages. Internal error detail stays in the logs.
const (
	msgRateLimited    = "Rate limit exceeded. Please try again later."
	msgNoJSON         = "No JSON data received"
	msgInvalidMessage = "Invalid or empty message"
	msgInvalidHistory = "Invalid conversation history format"
	msgTimeout        = "Request timed out. Please try again."
	msgAuthFailure    = "API authentication error. Please contact support."
	msgProviderError  = "Error generating response. Please try again."
	msgBusy           = "Server is busy. Please try again later."
	msgUnexpected     = "An unexpected error occurred"
)

// Handler wires HTTP routes to the admission pipeline and the chat service.
type Handler struct {
	limiter ratelimit.Limiter
	chat    *chat.Service
	logger  *zap.Logger
}

func NewHandler(limiter ratelimit.Limiter, chatService *chat.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		limiter: limiter,
		chat:    chatService,
		logger:  logger,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID())
	router.GET("/", h.home)
	router.GET("/chat", h.chatInfo)
	router.POST("/chat", h.handleChat)
}

// requestID tags every request for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) home(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to the Robotics Education Assistant! Send POST requests to /chat to interact.")
}

func (h *Handler) chatInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Please send a POST request with your message"})
}

type chatRequest struct {
	Message json.RawMessage `json:"message"`
	History json.RawMessage `json:"history"`
}

type chatResponse struct {
	Response  string           `json:"response"`
	History   []models.Message `json:"history"`
	Truncated bool             `json:"truncated,omitempty"`
}

func (h *Handler) handleChat(c *gin.Context) {
	logger := h.requestLogger(c)

	// Admission is charged before validation: malformed requests still
	// spend quota, which keeps unparseable floods cheap to reject.
	identity := c.ClientIP()
	if !h.limiter.Admit(identity) {
		logger.Warn("rate limit exceeded", zap.String("identity", identity))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
		return
	}
	logger.Info("chat request", zap.String("identity", identity))

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoJSON})
		return
	}

	var message string
	if err := json.Unmarshal(req.Message, &message); err != nil || models.ValidateContent(message) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidMessage})
		return
	}

	hist, err := models.ParseHistory(req.History)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidHistory})
		return
	}

	reply, err := h.chat.Respond(c.Request.Context(), hist, message)
	if err != nil {
		status, msg := classifyFailure(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:  reply.Content,
		History:   reply.History,
		Truncated: reply.Truncated,
	})
}

func classifyFailure(err error) (int, string) {
	switch {
	case errors.Is(err, worker.ErrBusy):
		return http.StatusTooManyRequests, msgBusy
	case errors.Is(err, chat.ErrProviderTimeout):
		return http.StatusInternalServerError, msgTimeout
	case errors.Is(err, chat.ErrProviderAuth):
		return http.StatusInternalServerError, msgAuthFailure
	case errors.Is(err, chat.ErrProvider):
		return http.StatusInternalServerError, msgProviderError
	}
	return http.StatusInternalServerError, msgUnexpected
}

func (h *Handler) requestLogger(c *gin.Context) *zap.Logger {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return h.logger.With(zap.String("request_id", s))
		}
	}
	return h.logger
}
