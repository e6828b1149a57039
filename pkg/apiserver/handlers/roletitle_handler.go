package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/service"
)

type RoleTitleHandler struct {
	roleTitles *service.RoleTitleService
	logger     *zap.Logger
}

func NewRoleTitleHandler(roleTitles *service.RoleTitleService, logger *zap.Logger) *RoleTitleHandler {
	return &RoleTitleHandler{roleTitles: roleTitles, logger: logger}
}

func (h *RoleTitleHandler) Create(c *gin.Context) {
	var req service.RoleTitleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	id, err := h.roleTitles.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

func (h *RoleTitleHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RoleTitleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.roleTitles.Update(c.Request.Context(), id, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

func (h *RoleTitleHandler) List(c *gin.Context) {
	var filter service.RoleTitleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBadRequest(c, "invalid query parameters")
		return
	}
	var params paging.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "invalid paging parameters")
		return
	}
	titles, info, err := h.roleTitles.List(c.Request.Context(), &filter, &params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondPage(c, titles, info)
}

func (h *RoleTitleHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	title, err := h.roleTitles.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, title)
}
