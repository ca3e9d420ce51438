package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"learnhub-service/internal/logger"
)

type RouterConfig struct {
	Handlers    *Handlers
	WS          *WSHandler
	CORSOrigins []string
	Log         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Log.With("component", "HTTP")))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	h := cfg.Handlers
	router.GET("/healthz", h.Health)
	router.GET("/ws", gin.WrapF(cfg.WS.ServeWS))

	api := router.Group("/api/v1")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	protected := api.Group("/")
	protected.Use(RequireAuth(h.auth, h.log))
	protected.GET("/quizzes/:id", h.GetQuiz)
	protected.POST("/quizzes/:id/attempts", h.StartAttempt)
	protected.GET("/quizzes/:id/attempts", h.ListAttempts)
	protected.PATCH("/attempts/:id/submit", h.SubmitAttempt)
	protected.GET("/rooms/:id/messages", h.RoomMessages)

	return router
}
