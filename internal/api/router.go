package api

import (
	"github.com/gin-gonic/gin"
	"github.com/pictolab/pictoreco/internal/api/handler"
	"github.com/pictolab/pictoreco/internal/api/middleware"
	"github.com/pictolab/pictoreco/internal/logger"
	"github.com/pictolab/pictoreco/internal/service"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Recommender *service.Recommender
	History     *service.HistoryStore
	Validator   *service.SelectionValidator
	Interpret   *service.InterpretService
	Generator   *service.GeneratorService
	Cards       *service.CardService // nil without a database
}

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - svc: service bundle.
//   - log: base logger for request logging.
//   - mode: Gin mode (debug, release, test).
//   - cors: CORS policy.
//
// Returns:
//   - *gin.Engine: configured router.
func SetupRouter(svc *Services, log *logger.Logger, mode string, cors middleware.CORSConfig) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	recommendHandler := handler.NewRecommendHandler(svc.Recommender, svc.History, svc.Cards)
	selectionHandler := handler.NewSelectionHandler(svc.Validator, svc.Interpret, svc.Cards)
	combinationHandler := handler.NewCombinationHandler(svc.Generator)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Boards: recommendation pages and history
		v1.POST("/boards/:id/recommendations", recommendHandler.Recommend)
		v1.GET("/boards/:id/pages", recommendHandler.GetHistory)
		v1.GET("/boards/:id/pages/:page", recommendHandler.GetPage)

		// Selections
		v1.POST("/selections/validate", selectionHandler.Validate)
		v1.POST("/interpretations", selectionHandler.Interpret)

		// Combinations
		v1.POST("/combinations", combinationHandler.Assemble)

		// Card catalog, present only when a database is configured
		if svc.Cards != nil {
			cardHandler := handler.NewCardHandler(svc.Cards)
			v1.GET("/cards", cardHandler.ListCards)
			v1.GET("/cards/:id", cardHandler.GetCard)
		}

		// Stats
		v1.GET("/stats", recommendHandler.GetStats)
	}

	return r
}
