package handler

import (
	"net/http"

	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/middleware"
	"github.com/J3ZZ3/empcare/internal/repository"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/pkg/pagination"
	"github.com/J3ZZ3/empcare/pkg/response"

	"github.com/gin-gonic/gin"
)

type CorrectionHandler struct {
	correctionService service.CorrectionService
}

func NewCorrectionHandler(correctionService service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{correctionService: correctionService}
}

func (h *CorrectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	corrections := router.Group("/api/corrections")
	{
		corrections.POST("", middleware.RequireCapability(authz.ResCorrection, authz.ActRequest), h.RequestCorrection)
		corrections.GET("", middleware.RequireCapability(authz.ResCorrection, authz.ActRead), h.ListCorrections)
		corrections.GET("/:id", middleware.RequireCapability(authz.ResCorrection, authz.ActRead), h.GetCorrection)
		corrections.PUT("/:id/review", middleware.RequireCapability(authz.ResCorrection, authz.ActReview), h.ReviewCorrection)
	}
}

// RequestCorrection files a pending correction request
// @Summary      Request a correction
// @Description  Files a request to change one field of a historical entity. The target is untouched until an admin approves.
// @Tags         corrections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RequestCorrectionRequest  true  "Correction payload"
// @Success      201      {object}  response.Response{data=service.CorrectionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/corrections [post]
func (h *CorrectionHandler) RequestCorrection(c *gin.Context) {
	var req service.RequestCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.correctionService.RequestCorrection(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListCorrections returns correction requests, optionally filtered
// @Summary      List correction requests
// @Tags         corrections
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type  query     string  false  "Entity type filter"
// @Param        status       query     string  false  "Status filter"
// @Success      200          {object}  response.Response{data=[]service.CorrectionResponse}
// @Router       /api/corrections [get]
func (h *CorrectionHandler) ListCorrections(c *gin.Context) {
	p := pagination.Parse(c)

	filter := repository.CorrectionFilter{
		EntityType: c.Query("entity_type"),
		Status:     c.Query("status"),
		Page:       p.Page,
		Limit:      p.Limit,
	}

	result, total, err := h.correctionService.ListCorrections(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, result, total, p.Page, p.Limit))
}

// GetCorrection returns one correction request
// @Summary      Get a correction request
// @Tags         corrections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Correction ID"
// @Success      200  {object}  response.Response{data=service.CorrectionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/corrections/{id} [get]
func (h *CorrectionHandler) GetCorrection(c *gin.Context) {
	result, err := h.correctionService.GetCorrection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReviewCorrection approves or rejects a pending correction request
// @Summary      Review a correction request
// @Description  Approval applies the new value to the target entity in the same transaction. A request is reviewable exactly once.
// @Tags         corrections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Correction ID"
// @Param        payload  body      service.ReviewCorrectionRequest  true  "Review decision"
// @Success      200      {object}  response.Response{data=service.CorrectionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/corrections/{id}/review [put]
func (h *CorrectionHandler) ReviewCorrection(c *gin.Context) {
	var req service.ReviewCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.correctionService.ReviewCorrection(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
