package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/services"
)

type SearchHandler struct {
	searchService *services.SearchService
}

func NewSearchHandler(searchService *services.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search finds tasks by title across the organization's active projects.
func (h *SearchHandler) Search(c *gin.Context) {
	member, ok := currentMember(c)
	if !ok {
		return
	}

	q := c.Query("q")
	rows, err := h.searchService.SearchTasks(c.Request.Context(), member, q)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSearchResponse(q, rows))
}
