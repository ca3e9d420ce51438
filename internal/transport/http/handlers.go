package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"learnhub-service/internal/app"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

// Handlers serves the REST surface.
type Handlers struct {
	quizzes *app.QuizService
	hub     *app.Hub
	auth    *app.AuthService
	log     *logger.Logger
}

func NewHandlers(quizzes *app.QuizService, hub *app.Hub, auth *app.AuthService, log *logger.Logger) *Handlers {
	return &Handlers{
		quizzes: quizzes,
		hub:     hub,
		auth:    auth,
		log:     log.With("component", "RESTHandlers"),
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type submitRequest struct {
	Answers []domain.AnswerSubmission `json:"answers"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handlers) GetQuiz(c *gin.Context) {
	view, err := h.quizzes.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) StartAttempt(c *gin.Context) {
	attempt, err := h.quizzes.StartAttempt(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attempt": attempt})
}

func (h *Handlers) ListAttempts(c *gin.Context) {
	attempts, err := h.quizzes.ListAttempts(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *Handlers) SubmitAttempt(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	result, err := h.quizzes.SubmitAttempt(c.Request.Context(), c.Param("id"), currentUser(c), req.Answers)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) RoomMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, h.log, domain.Invalid("limit must be a number"))
			return
		}
		limit = n
	}
	page, err := h.hub.History(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
