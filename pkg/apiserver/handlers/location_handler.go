package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/service"
)

type LocationHandler struct {
	locations *service.LocationService
	logger    *zap.Logger
}

func NewLocationHandler(locations *service.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

func (h *LocationHandler) List(c *gin.Context) {
	rows, err := h.locations.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, rows)
}

func (h *LocationHandler) Assign(c *gin.Context) {
	code := c.Param("code")
	var req struct {
		StaffID *int64 `json:"staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.locations.Assign(c.Request.Context(), code, req.StaffID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"location_code": code})
}

func (h *LocationHandler) GetStaff(c *gin.Context) {
	code := c.Param("code")
	staff, err := h.locations.StaffForProvince(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, staff)
}
