package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/service"
)

// RecommendHandler handles board recommendation and history endpoints.
type RecommendHandler struct {
	recommender *service.Recommender
	history     *service.HistoryStore
	cards       *service.CardService
}

// NewRecommendHandler creates a new recommendation handler.
// Parameters:
//   - recommender: recommendation service instance.
//   - history: board history store shared with the recommender.
//   - cards: card catalog for resolving page items; may be nil.
//
// Returns:
//   - *RecommendHandler: initialized handler.
func NewRecommendHandler(recommender *service.Recommender, history *service.HistoryStore, cards *service.CardService) *RecommendHandler {
	return &RecommendHandler{
		recommender: recommender,
		history:     history,
		cards:       cards,
	}
}

// RecommendRequest represents the recommendation API request.
type RecommendRequest struct {
	Persona *domain.Persona      `json:"persona"`
	Context *domain.BoardContext `json:"context"`
}

// pageResponse renders a history page, with card details when the catalog
// is available.
type pageResponse struct {
	BoardID    string            `json:"board_id"`
	PageNumber int               `json:"page_number"`
	Items      []string          `json:"items"`
	Cards      []domain.CardView `json:"cards,omitempty"`
}

func (h *RecommendHandler) renderPage(c *gin.Context, page *domain.RecommendationPage) pageResponse {
	resp := pageResponse{
		BoardID:    page.BoardID,
		PageNumber: page.PageNumber,
		Items:      page.Items,
	}
	if h.cards != nil {
		if views, err := h.cards.GetCards(c.Request.Context(), page.Items); err == nil {
			resp.Cards = views
		}
	}
	return resp
}

// Recommend handles POST /api/v1/boards/:id/recommendations.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) Recommend(c *gin.Context) {
	boardID := c.Param("id")
	if boardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Board ID is required",
		})
		return
	}

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	page, err := h.recommender.Recommend(c.Request.Context(), req.Persona, req.Context, boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Recommendation failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.renderPage(c, page))
}

// GetPage handles GET /api/v1/boards/:id/pages/:page.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) GetPage(c *gin.Context) {
	boardID := c.Param("id")
	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Page number must be an integer",
		})
		return
	}

	page, err := h.history.GetPage(c.Request.Context(), boardID, pageNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Page not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load page: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.renderPage(c, page))
}

// GetHistory handles GET /api/v1/boards/:id/pages.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) GetHistory(c *gin.Context) {
	boardID := c.Param("id")

	summary, err := h.history.GetSummary(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Board has no history",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load history: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.recommender.GetStats())
}
