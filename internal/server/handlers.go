package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/spbridge/internal/browse"
	"github.com/tonimelisma/spbridge/internal/catalog"
)

// envelope is the common response contract.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

func respondJSON(c *gin.Context, status int, data any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, envelope{Data: data})
}

func respondError(c *gin.Context, err error) {
	apiErr := fromError(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(apiErr.Status, envelope{Error: apiErr})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// browse handles GET /v1/browse?site_id=&drive_id=&folder_id=.
func (s *Server) browse(c *gin.Context) {
	var loc browse.Location
	if err := c.ShouldBindQuery(&loc); err != nil {
		respondError(c, fmt.Errorf("%w: %w", catalog.ErrInvalidRequest, err))
		return
	}

	result, err := s.browser.Browse(c.Request.Context(), loc)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

// transfer handles POST /v1/transfers.
func (s *Server) transfer(c *gin.Context) {
	if s.opts.DestinationEnabled != nil && !s.opts.DestinationEnabled() {
		respondError(c, ErrDestinationDisabled)
		return
	}

	var req catalog.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: malformed JSON body: %w", catalog.ErrInvalidRequest, err))
		return
	}

	report, err := s.transferrer.TransferSelected(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}
