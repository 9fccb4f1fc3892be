package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pictolab/pictoreco/internal/service"
)

// CombinationHandler handles combination assembly endpoints.
type CombinationHandler struct {
	generator *service.GeneratorService
}

// NewCombinationHandler creates a new combination handler.
// Parameters:
//   - generator: combination generator instance.
// Returns:
//   - *CombinationHandler: initialized handler.
func NewCombinationHandler(generator *service.GeneratorService) *CombinationHandler {
	return &CombinationHandler{
		generator: generator,
	}
}

// AssembleRequest represents the combination assembly API request.
type AssembleRequest struct {
	// Size requests a specific combination size; 0 draws from the configured range
	Size int `json:"size"`
}

// Assemble handles POST /api/v1/combinations.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CombinationHandler) Assemble(c *gin.Context) {
	var req AssembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	combo, err := h.generator.AssembleOne(c.Request.Context(), req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Assembly failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, combo)
}
