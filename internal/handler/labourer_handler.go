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

type LabourerHandler struct {
	labourerService service.LabourerService
}

func NewLabourerHandler(labourerService service.LabourerService) *LabourerHandler {
	return &LabourerHandler{labourerService: labourerService}
}

func (h *LabourerHandler) RegisterRoutes(router *gin.RouterGroup) {
	labourers := router.Group("/api/labourers")
	{
		labourers.POST("", middleware.RequireCapability(authz.ResLabourer, authz.ActManage), h.CreateLabourer)
		labourers.GET("", middleware.RequireCapability(authz.ResLabourer, authz.ActRead), h.ListLabourers)
		labourers.GET("/:id", middleware.RequireCapability(authz.ResLabourer, authz.ActRead), h.GetLabourer)
		labourers.PUT("/:id", middleware.RequireCapability(authz.ResLabourer, authz.ActManage), h.UpdateLabourer)
	}

	types := router.Group("/api/employee-types")
	{
		types.POST("", middleware.RequireCapability(authz.ResLabourer, authz.ActManage), h.CreateEmployeeType)
		types.GET("", middleware.RequireAuth(), h.ListEmployeeTypes)
		types.DELETE("/:id", middleware.RequireCapability(authz.ResLabourer, authz.ActManage), h.DeactivateEmployeeType)
	}
}

// CreateLabourer registers a new field worker
// @Summary      Create a labourer
// @Tags         labourers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateLabourerRequest  true  "Labourer payload"
// @Success      201      {object}  response.Response{data=service.LabourerResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/labourers [post]
func (h *LabourerHandler) CreateLabourer(c *gin.Context) {
	var req service.CreateLabourerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.labourerService.CreateLabourer(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListLabourers returns labourers, optionally filtered by project
// @Summary      List labourers
// @Tags         labourers
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  false  "Project ID"
// @Success      200         {object}  response.Response{data=[]service.LabourerResponse}
// @Router       /api/labourers [get]
func (h *LabourerHandler) ListLabourers(c *gin.Context) {
	p := pagination.Parse(c)

	result, total, err := h.labourerService.ListLabourers(c.Request.Context(), c.Query("project_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, result, total, p.Page, p.Limit))
}

// GetLabourer returns one labourer
// @Summary      Get a labourer
// @Tags         labourers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Labourer ID"
// @Success      200  {object}  response.Response{data=service.LabourerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/labourers/{id} [get]
func (h *LabourerHandler) GetLabourer(c *gin.Context) {
	result, err := h.labourerService.GetLabourer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateLabourer edits a labourer's details
// @Summary      Update a labourer
// @Description  Banking, identity, and project assignment freeze once payment history exists; those changes then require a correction request.
// @Tags         labourers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Labourer ID"
// @Param        payload  body      service.UpdateLabourerRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.LabourerResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/labourers/{id} [put]
func (h *LabourerHandler) UpdateLabourer(c *gin.Context) {
	var req service.UpdateLabourerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.labourerService.UpdateLabourer(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateEmployeeType adds a labourer classification
// @Summary      Create an employee type
// @Tags         employee-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.EmployeeTypeRequest  true  "Employee type payload"
// @Success      201      {object}  response.Response{data=service.EmployeeTypeResponse}
// @Router       /api/employee-types [post]
func (h *LabourerHandler) CreateEmployeeType(c *gin.Context) {
	var req service.EmployeeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.labourerService.CreateEmployeeType(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListEmployeeTypes returns labourer classifications
// @Summary      List employee types
// @Tags         employee-types
// @Produce      json
// @Security     BearerAuth
// @Param        active_only  query     bool  false  "Only active types"
// @Success      200          {object}  response.Response{data=[]service.EmployeeTypeResponse}
// @Router       /api/employee-types [get]
func (h *LabourerHandler) ListEmployeeTypes(c *gin.Context) {
	result, err := h.labourerService.ListEmployeeTypes(c.Request.Context(), c.Query("active_only") == "true")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeactivateEmployeeType soft-deletes an employee type
// @Summary      Deactivate an employee type
// @Description  Existing labourers and rates keep the reference; new assignments are refused.
// @Tags         employee-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee type ID"
// @Success      200  {object}  response.Response{data=service.EmployeeTypeResponse}
// @Router       /api/employee-types/{id} [delete]
func (h *LabourerHandler) DeactivateEmployeeType(c *gin.Context) {
	result, err := h.labourerService.DeactivateEmployeeType(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
