package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// approveReview handles POST /api/v1/reviews/:id/approve. :id is the
// decision ID (review.Service.Open mints the review record's own ID as
// "rev-"+decisionID, but every lookup -- here and in pkg/incident -- is
// keyed on the decision).
func (s *Server) approveReview(c *gin.Context) {
	var req ReviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.reviews.Approve(c.Request.Context(), c.Param("id"), req.Reviewer, req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome.Record)
}

// rejectReview handles POST /api/v1/reviews/:id/reject.
func (s *Server) rejectReview(c *gin.Context) {
	var req ReviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.reviews.Reject(c.Request.Context(), c.Param("id"), req.Reviewer, req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome.Record)
}
