package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/apiserver/middleware"
	"github.com/staffdir/staffdir/pkg/bulkimport"
	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/service"
)

type StaffHandler struct {
	staff    *service.StaffService
	importer *bulkimport.Importer
	logger   *zap.Logger
}

func NewStaffHandler(staff *service.StaffService, importer *bulkimport.Importer, logger *zap.Logger) *StaffHandler {
	return &StaffHandler{staff: staff, importer: importer, logger: logger}
}

func (h *StaffHandler) Create(c *gin.Context) {
	var req service.StaffCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	id, err := h.staff.Create(c.Request.Context(), middleware.Token(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

func (h *StaffHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.StaffUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.staff.Update(c.Request.Context(), middleware.Token(c), id, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

func (h *StaffHandler) List(c *gin.Context) {
	var filter service.StaffListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBadRequest(c, "invalid query parameters")
		return
	}
	var params paging.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "invalid paging parameters")
		return
	}
	items, info, err := h.staff.List(c.Request.Context(), &filter, &params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondPage(c, items, info)
}

func (h *StaffHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.staff.Detail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, detail)
}

func (h *StaffHandler) GetByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respondBadRequest(c, "email is required")
		return
	}
	detail, err := h.staff.DetailByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, detail)
}

func (h *StaffHandler) Tree(c *gin.Context) {
	companyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	forest, err := h.staff.Tree(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, forest)
}

// Import takes a multipart spreadsheet plus the target company and runs the
// bulk loader.
func (h *StaffHandler) Import(c *gin.Context) {
	var form struct {
		CompanyID int64 `form:"company_id" binding:"required"`
	}
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "company_id is required")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.importer.Import(c.Request.Context(), middleware.Token(c), form.CompanyID, fileHeader.Filename, data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// Reconcile schedules a full identity-provider repair pass.
func (h *StaffHandler) Reconcile(c *gin.Context) {
	if err := h.staff.EnqueueReconcile(c.Request.Context(), middleware.Token(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Code: "000", Message: "reconcile scheduled"})
}
