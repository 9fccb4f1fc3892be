package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/service"
)

// CardHandler handles card catalog endpoints.
type CardHandler struct {
	cards *service.CardService
}

// NewCardHandler creates a new card handler.
// Parameters:
//   - cards: card catalog service instance.
// Returns:
//   - *CardHandler: initialized handler.
func NewCardHandler(cards *service.CardService) *CardHandler {
	return &CardHandler{
		cards: cards,
	}
}

// ListCards handles GET /api/v1/cards.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CardHandler) ListCards(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var clusterID *int
	if raw := c.Query("cluster_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "cluster_id must be an integer",
			})
			return
		}
		clusterID = &id
	}

	var status *domain.CardStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.CardStatus(raw)
		status = &s
	}

	views, total, err := h.cards.ListCards(c.Request.Context(), clusterID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list cards: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards": views,
		"total": total,
	})
}

// GetCard handles GET /api/v1/cards/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CardHandler) GetCard(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Card ID is required",
		})
		return
	}

	view, err := h.cards.GetCard(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Card not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch card: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, view)
}
