package provisioning

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/tenantflow/internal/core/errors"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the provisioning API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/provisioning", s.HandleStart)
	r.GET("/v1/provisioning/:run_id", s.HandleGet)
	r.POST("/v1/provisioning/:run_id/cancel", s.HandleCancel)
}

// HandleStart handles POST /v1/provisioning.
func (s *Service) HandleStart(c *gin.Context) {
	var params workflow.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
		})
		return
	}

	handle, err := s.Start(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, ErrInvalidParams) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidParamsError,
				Message:   err.Error(),
			})
			return
		}
		slog.Error("[Saga] Failed to start run", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to start provisioning",
		})
		return
	}

	slog.Info("[Saga] Run started", "run_id", handle.ID, "organization", params.OrganizationName)
	c.JSON(http.StatusAccepted, gin.H{
		"run_id": handle.ID,
		"status": workflow.StatusRunning,
	})
}

// HandleGet handles GET /v1/provisioning/:run_id.
func (s *Service) HandleGet(c *gin.Context) {
	res, err := s.Result(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleCancel handles POST /v1/provisioning/:run_id/cancel.
func (s *Service) HandleCancel(c *gin.Context) {
	id := c.Param("run_id")
	if err := s.Cancel(c.Request.Context(), id); err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id, "cancel_requested": true})
}

func writeRunError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Provisioning run not found",
		})
		return
	}
	slog.Error("[Saga] Run lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Failed to load provisioning run",
	})
}
