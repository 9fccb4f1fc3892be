package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/service"
)

// SelectionHandler handles selection validation and interpretation endpoints.
type SelectionHandler struct {
	validator *service.SelectionValidator
	interpret *service.InterpretService
	cards     *service.CardService
}

// NewSelectionHandler creates a new selection handler.
// Parameters:
//   - validator: selection validator instance.
//   - interpret: interpretation service instance.
//   - cards: card catalog for resolving labels; may be nil.
//
// Returns:
//   - *SelectionHandler: initialized handler.
func NewSelectionHandler(validator *service.SelectionValidator, interpret *service.InterpretService, cards *service.CardService) *SelectionHandler {
	return &SelectionHandler{
		validator: validator,
		interpret: interpret,
		cards:     cards,
	}
}

// ValidateRequest represents the selection validation API request.
type ValidateRequest struct {
	Selected  []string `json:"selected"`
	Presented []string `json:"presented"`
}

// Validate handles POST /api/v1/selections/validate.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SelectionHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	// Rule violations come back as a structured invalid result, not an error
	c.JSON(http.StatusOK, h.validator.Validate(req.Selected, req.Presented))
}

// InterpretRequest represents the interpretation API request.
type InterpretRequest struct {
	Selected []string             `json:"selected" binding:"required,min=1"`
	Context  *domain.BoardContext `json:"context"`
}

// Interpret handles POST /api/v1/interpretations.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SelectionHandler) Interpret(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	// Interpret card labels when the catalog knows them, raw IDs otherwise
	labels := req.Selected
	if h.cards != nil {
		if views, err := h.cards.GetCards(c.Request.Context(), req.Selected); err == nil {
			labels = make([]string, len(views))
			for i, v := range views {
				if v.Label != "" {
					labels[i] = v.Label
				} else {
					labels[i] = v.ID
				}
			}
		}
	}

	utterance, err := h.interpret.Interpret(c.Request.Context(), labels, req.Context)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Interpretation failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"utterance":    utterance,
		"model_backed": h.interpret.IsEnabled(),
	})
}
