package handler

import (
	"net/http"
	"time"

	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/middleware"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RateHandler struct {
	rateService service.RateService
}

func NewRateHandler(rateService service.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

func (h *RateHandler) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/api/pay-rates")
	{
		rates.POST("", middleware.RequireCapability(authz.ResRate, authz.ActManage), h.CreatePayRate)
		rates.GET("/project/:id", middleware.RequireCapability(authz.ResRate, authz.ActRead), h.ListProjectRates)
		rates.GET("/resolve", middleware.RequireCapability(authz.ResRate, authz.ActRead), h.ResolveRate)
	}
}

// CreatePayRate adds a rate version effective from a date
// @Summary      Create a pay rate
// @Description  Rates are append-only versions; a new rate takes effect from its effective date and never alters recorded earnings.
// @Tags         pay-rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePayRateRequest  true  "Rate payload"
// @Success      201      {object}  response.Response{data=service.PayRateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/pay-rates [post]
func (h *RateHandler) CreatePayRate(c *gin.Context) {
	var req service.CreatePayRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.rateService.CreatePayRate(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListProjectRates returns all rate versions for a project
// @Summary      List project pay rates
// @Tags         pay-rates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=[]service.PayRateResponse}
// @Router       /api/pay-rates/project/{id} [get]
func (h *RateHandler) ListProjectRates(c *gin.Context) {
	result, err := h.rateService.ListProjectRates(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ResolveRate previews the rate effective on a date
// @Summary      Resolve an effective pay rate
// @Tags         pay-rates
// @Produce      json
// @Security     BearerAuth
// @Param        project_id        query     string  true   "Project ID"
// @Param        employee_type_id  query     string  true   "Employee type ID"
// @Param        category          query     string  true   "Rate category"
// @Param        as_of             query     string  false  "Date (YYYY-MM-DD), defaults to today"
// @Success      200               {object}  response.Response{data=service.ResolvedRateResponse}
// @Failure      404               {object}  response.Response
// @Router       /api/pay-rates/resolve [get]
func (h *RateHandler) ResolveRate(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project_id"))
		return
	}
	employeeTypeID, err := uuid.Parse(c.Query("employee_type_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid employee_type_id"))
		return
	}

	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid as_of date (expected YYYY-MM-DD)"))
			return
		}
	}

	rate, err := h.rateService.ResolveRate(c.Request.Context(), projectID, employeeTypeID, c.Query("category"), asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ResolvedRateResponse{
		RateID:        rate.ID.String(),
		Category:      rate.Category,
		Amount:        rate.Amount.StringFixed(2),
		Unit:          rate.Unit,
		EffectiveDate: rate.EffectiveDate.Format("2006-01-02"),
	}))
}
