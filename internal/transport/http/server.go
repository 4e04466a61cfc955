package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appsvc "studymate/internal/app"
	"studymate/internal/bootstrap"
	"studymate/internal/cache"
	"studymate/internal/rag"
	"studymate/internal/repository"
	"studymate/internal/transport/http/handler"
	"studymate/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(cfg.App.Name),
		middleware.Logger(app.Logger, app.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	userRepo := repository.NewUserRepository(app.DB)
	documentRepo := repository.NewDocumentRepository(app.DB)
	quizRepo := repository.NewQuizRepository(app.DB)
	attemptRepo := repository.NewQuizAttemptRepository(app.DB)
	summaryRepo := repository.NewSummaryRepository(app.DB)
	scopes := rag.NewScopeResolver(documentRepo)

	var statsCache appsvc.StatsCache
	if app.Redis != nil {
		statsCache = cache.NewStatsCache(app.Redis, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
	}

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		app.Logger,
	)
	documentService := appsvc.NewDocumentService(documentRepo, app.Publisher, app.Index, app.Logger)
	quizService := appsvc.NewQuizService(appsvc.QuizServiceDeps{
		Quizzes:   quizRepo,
		Attempts:  attemptRepo,
		Documents: documentRepo,
		Scopes:    scopes,
		Generator: app.Generator,
		Cache:     statsCache,
		Logger:    app.Logger,
		Metrics:   app.Metrics,
		Location:  cfg.Location(),
	})
	summaryService := appsvc.NewSummaryService(summaryRepo, documentRepo, scopes, app.Generator, nil, app.Logger)
	chatService := appsvc.NewChatService(scopes, app.Generator, app.Logger)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService, app.Logger)
	quizHandler := handler.NewQuizHandler(quizService, app.Logger)
	summaryHandler := handler.NewSummaryHandler(summaryService, app.Logger)
	chatHandler := handler.NewChatHandler(chatService, app.Logger)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	protected := v1.Group("")
	protected.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	RegisterRoutes(protected, Handlers{
		Documents: documentHandler,
		Quizzes:   quizHandler,
		Summaries: summaryHandler,
		Chat:      chatHandler,
	})

	return router
}

type Handlers struct {
	Documents *handler.DocumentHandler
	Quizzes   *handler.QuizHandler
	Summaries *handler.SummaryHandler
	Chat      *handler.ChatHandler
}

// RegisterRoutes mounts the authenticated API on g.
func RegisterRoutes(g *gin.RouterGroup, h Handlers) {
	documents := g.Group("/documents")
	documents.POST("", h.Documents.Upload)
	documents.GET("", h.Documents.List)
	documents.DELETE("/:id", h.Documents.Delete)

	quizzes := g.Group("/quizzes")
	quizzes.POST("", h.Quizzes.Create)
	quizzes.GET("", h.Quizzes.List)
	quizzes.GET("/:id", h.Quizzes.Get)
	quizzes.POST("/:id/attempts", h.Quizzes.RecordAttempt)
	g.GET("/stats", h.Quizzes.Stats)

	summaries := g.Group("/summaries")
	summaries.POST("", h.Summaries.Create)
	summaries.GET("", h.Summaries.List)

	chat := g.Group("/chat")
	chat.POST("", h.Chat.Ask)
	chat.POST("/stream", h.Chat.Stream)
}
