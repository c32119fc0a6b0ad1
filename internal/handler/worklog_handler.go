package handler

import (
	"net/http"

	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/middleware"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/pkg/pagination"
	"github.com/J3ZZ3/empcare/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkLogHandler struct {
	workLogService service.WorkLogService
}

func NewWorkLogHandler(workLogService service.WorkLogService) *WorkLogHandler {
	return &WorkLogHandler{workLogService: workLogService}
}

func (h *WorkLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/api/work-logs")
	{
		logs.POST("", middleware.RequireCapability(authz.ResWorkLog, authz.ActRecord), h.RecordWorkLog)
		logs.GET("", middleware.RequireCapability(authz.ResWorkLog, authz.ActRead), h.ListWorkLogs)
		logs.GET("/labourer/:id", middleware.RequireCapability(authz.ResWorkLog, authz.ActRead), h.ListLabourerWorkLogs)
	}
}

// RecordWorkLog records (or overwrites) one labourer/day output entry
// @Summary      Record a work log
// @Description  Writes one labourer's trenching output for a date. A second write for the same labourer and date overwrites the first.
// @Tags         work-logs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RecordWorkLogRequest  true  "Work log payload"
// @Success      201      {object}  response.Response{data=service.WorkLogResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/work-logs [post]
func (h *WorkLogHandler) RecordWorkLog(c *gin.Context) {
	var req service.RecordWorkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.workLogService.RecordWorkLog(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListWorkLogs returns work logs for a project within a date range
// @Summary      List work logs
// @Tags         work-logs
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  true  "Project ID"
// @Param        from        query     string  true  "Range start (YYYY-MM-DD)"
// @Param        to          query     string  true  "Range end (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=[]service.WorkLogResponse}
// @Router       /api/work-logs [get]
func (h *WorkLogHandler) ListWorkLogs(c *gin.Context) {
	result, err := h.workLogService.ListWorkLogs(c.Request.Context(), c.Query("project_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListLabourerWorkLogs returns one labourer's work log history, newest first
// @Summary      List a labourer's work logs
// @Tags         work-logs
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Labourer ID"
// @Param        page   query     int     false  "Page"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  response.Response{data=[]service.WorkLogResponse}
// @Router       /api/work-logs/labourer/{id} [get]
func (h *WorkLogHandler) ListLabourerWorkLogs(c *gin.Context) {
	p := pagination.Parse(c)

	result, total, err := h.workLogService.ListMyWorkLogs(c.Request.Context(), actorFrom(c), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, result, total, p.Page, p.Limit))
}
