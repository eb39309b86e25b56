package projection

import (
	"errors"
	"net/http"

	httperr "github.com/aevon-lab/jfrtel/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all status API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/pipeline", s.HandlePipeline)
	r.GET("/v1/pipeline/:event_name", s.HandleLane)
	r.GET("/v1/recording/settings", s.HandleRecordingSettings)
	r.GET("/v1/rules", s.HandleRules)
}

// HandlePipeline handles GET /v1/pipeline
func (s *Service) HandlePipeline(c *gin.Context) {
	c.JSON(http.StatusOK, s.Pipeline())
}

// HandleLane handles GET /v1/pipeline/:event_name
func (s *Service) HandleLane(c *gin.Context) {
	var uri struct {
		EventName string `uri:"event_name" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	lane, err := s.Lane(uri.EventName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpUnsupportedEventError,
				Message:   "Event kind is not consumed",
				Details:   map[string]string{"event_name": uri.EventName},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read pipeline status",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, lane)
}

// HandleRecordingSettings handles GET /v1/recording/settings
func (s *Service) HandleRecordingSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.RecordingSettings())
}

// HandleRules handles GET /v1/rules
func (s *Service) HandleRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": s.Rules()})
}
