package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listPlaybooks handles GET /api/v1/playbooks.
func (s *Server) listPlaybooks(c *gin.Context) {
	playbooks, err := s.playbooks.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, playbooks)
}

// getPlaybook handles GET /api/v1/playbooks/:id.
func (s *Server) getPlaybook(c *gin.Context) {
	p, err := s.playbooks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
