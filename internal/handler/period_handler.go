package handler

import (
	"fmt"
	"net/http"

	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/middleware"
	"github.com/J3ZZ3/empcare/internal/repository"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/pkg/pagination"
	"github.com/J3ZZ3/empcare/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PeriodHandler struct {
	periodService service.PeriodService
	exportService service.ExportService
}

func NewPeriodHandler(periodService service.PeriodService, exportService service.ExportService) *PeriodHandler {
	return &PeriodHandler{periodService: periodService, exportService: exportService}
}

func (h *PeriodHandler) RegisterRoutes(router *gin.RouterGroup) {
	periods := router.Group("/api/payment-periods")
	{
		periods.POST("", middleware.RequireCapability(authz.ResPeriod, authz.ActCreate), h.CreatePeriod)
		periods.GET("", middleware.RequireCapability(authz.ResPeriod, authz.ActRead), h.ListPeriods)
		periods.GET("/:id", middleware.RequireCapability(authz.ResPeriod, authz.ActRead), h.GetPeriod)
		periods.GET("/:id/entries", middleware.RequireCapability(authz.ResPeriod, authz.ActRead), h.GetPeriodEntries)
		periods.POST("/:id/aggregate", middleware.RequireCapability(authz.ResPeriod, authz.ActAggregate), h.AggregatePeriod)
		periods.PUT("/:id/submit", middleware.RequireCapability(authz.ResPeriod, authz.ActSubmit), h.SubmitPeriod)
		periods.PUT("/:id/approve", middleware.RequireCapability(authz.ResPeriod, authz.ActApprove), h.ApprovePeriod)
		periods.PUT("/:id/reject", middleware.RequireCapability(authz.ResPeriod, authz.ActReject), h.RejectPeriod)
		periods.PUT("/:id/reopen", middleware.RequireCapability(authz.ResPeriod, authz.ActReopen), h.ReopenPeriod)
		periods.PUT("/:id/mark-paid", middleware.RequireCapability(authz.ResPeriod, authz.ActMarkPaid), h.MarkPeriodPaid)
		periods.GET("/:id/export", middleware.RequireCapability(authz.ResReport, authz.ActExport), h.ExportPeriod)
	}
}

// CreatePeriod opens a new payment period for a project
// @Summary      Create a payment period
// @Tags         payment-periods
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePeriodRequest  true  "Period bounds"
// @Success      201      {object}  response.Response{data=service.PeriodResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payment-periods [post]
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	var req service.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.periodService.CreatePeriod(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListPeriods returns payment periods, optionally filtered
// @Summary      List payment periods
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  false  "Project ID"
// @Param        status      query     string  false  "Period status"
// @Success      200         {object}  response.Response{data=[]service.PeriodResponse}
// @Router       /api/payment-periods [get]
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	p := pagination.Parse(c)

	filter := repository.PeriodFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
	if raw := c.Query("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project_id"))
			return
		}
		filter.ProjectID = &id
	}

	result, total, err := h.periodService.ListPeriods(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, result, total, p.Page, p.Limit))
}

// GetPeriod returns one payment period
// @Summary      Get a payment period
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/payment-periods/{id} [get]
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	result, err := h.periodService.GetPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetPeriodEntries returns the per-labourer entries of a period
// @Summary      Get period entries
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=[]service.PeriodEntryResponse}
// @Router       /api/payment-periods/{id}/entries [get]
func (h *PeriodHandler) GetPeriodEntries(c *gin.Context) {
	result, err := h.periodService.GetPeriodEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AggregatePeriod re-derives period entries from the work logs in range
// @Summary      Aggregate a payment period
// @Description  Rebuilds the per-labourer entry set from work logs. Only valid while the period is open; repeat runs are idempotent.
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=[]service.PeriodEntryResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payment-periods/{id}/aggregate [post]
func (h *PeriodHandler) AggregatePeriod(c *gin.Context) {
	result, err := h.periodService.Aggregate(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SubmitPeriod moves an open period to submitted
// @Summary      Submit a payment period
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payment-periods/{id}/submit [put]
func (h *PeriodHandler) SubmitPeriod(c *gin.Context) {
	result, err := h.periodService.Submit(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ApprovePeriod moves a submitted period to approved
// @Summary      Approve a payment period
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payment-periods/{id}/approve [put]
func (h *PeriodHandler) ApprovePeriod(c *gin.Context) {
	result, err := h.periodService.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type rejectPeriodRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectPeriod moves a submitted period to rejected
// @Summary      Reject a payment period
// @Description  Rejection requires a reason and is terminal until an explicit reopen.
// @Tags         payment-periods
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Period ID"
// @Param        payload  body      rejectPeriodRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.PeriodResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/payment-periods/{id}/reject [put]
func (h *PeriodHandler) RejectPeriod(c *gin.Context) {
	var req rejectPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "A rejection reason is required"))
		return
	}

	result, err := h.periodService.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReopenPeriod moves a rejected period back to open
// @Summary      Reopen a rejected payment period
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payment-periods/{id}/reopen [put]
func (h *PeriodHandler) ReopenPeriod(c *gin.Context) {
	result, err := h.periodService.Reopen(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// MarkPeriodPaid moves an approved period to paid
// @Summary      Mark a payment period paid
// @Tags         payment-periods
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Period ID"
// @Success      200  {object}  response.Response{data=service.PeriodResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payment-periods/{id}/mark-paid [put]
func (h *PeriodHandler) MarkPeriodPaid(c *gin.Context) {
	result, err := h.periodService.MarkPaid(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ExportPeriod streams the payout spreadsheet for an approved or paid period
// @Summary      Export a period payout sheet
// @Tags         payment-periods
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id  path  string  true  "Period ID"
// @Success      200
// @Failure      400  {object}  response.Response
// @Router       /api/payment-periods/{id}/export [get]
func (h *PeriodHandler) ExportPeriod(c *gin.Context) {
	file, filename, err := h.exportService.ExportPeriodPayout(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		respondError(c, err)
	}
}
