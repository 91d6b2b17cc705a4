package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/strands-sre/strands/pkg/strandserr"
)

// writeServiceError maps a strandserr.Kind to an HTTP status, following a
// service-layer error taxonomy switched into HTTP status codes.
func writeServiceError(c *gin.Context, err error) {
	kind, ok := strandserr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch kind {
	case strandserr.KindValidationFailed:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case strandserr.KindInvalidReviewer:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case strandserr.KindReviewAlreadyClosed, strandserr.KindIllegalStateTransition, strandserr.KindOptimisticConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case strandserr.KindCircuitOpen, strandserr.KindUpstreamUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
