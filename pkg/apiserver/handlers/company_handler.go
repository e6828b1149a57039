package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/service"
)

type CompanyHandler struct {
	companies *service.CompanyService
	logger    *zap.Logger
}

func NewCompanyHandler(companies *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logger}
}

func (h *CompanyHandler) List(c *gin.Context) {
	var params paging.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "invalid paging parameters")
		return
	}
	companies, info, err := h.companies.List(c.Request.Context(), &params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondPage(c, companies, info)
}

func (h *CompanyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	company, err := h.companies.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, company)
}

func (h *CompanyHandler) ListCorporations(c *gin.Context) {
	corps, err := h.companies.ListCorporations(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, corps)
}
