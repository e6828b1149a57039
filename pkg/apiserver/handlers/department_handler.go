package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/service"
)

type DepartmentHandler struct {
	departments *service.DepartmentService
	logger      *zap.Logger
}

func NewDepartmentHandler(departments *service.DepartmentService, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{departments: departments, logger: logger}
}

func (h *DepartmentHandler) Create(c *gin.Context) {
	var req service.DepartmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	id, err := h.departments.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

func (h *DepartmentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DepartmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.departments.Update(c.Request.Context(), id, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

// UpdateStaff moves one staff into this department.
func (h *DepartmentHandler) UpdateStaff(c *gin.Context) {
	departmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	staffID, ok := pathID(c, "staff_id")
	if !ok {
		return
	}
	var req struct {
		RoleTitleID *int64 `json:"role_title_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.departments.UpdateStaff(c.Request.Context(), departmentID, staffID, req.RoleTitleID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"department_id": departmentID, "staff_id": staffID})
}

func (h *DepartmentHandler) List(c *gin.Context) {
	var filter service.DepartmentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBadRequest(c, "invalid query parameters")
		return
	}
	var params paging.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "invalid paging parameters")
		return
	}
	depts, info, err := h.departments.List(c.Request.Context(), &filter, &params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondPage(c, depts, info)
}

func (h *DepartmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dept, err := h.departments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, dept)
}

func (h *DepartmentHandler) Tree(c *gin.Context) {
	companyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	forest, err := h.departments.Tree(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, forest)
}
