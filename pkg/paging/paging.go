// Package paging validates and applies list-endpoint pagination parameters.
package paging

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
)

type Params struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	SortBy   string `form:"sort_by"`
	Order    string `form:"order"`
}

type PageInfo struct {
	TotalItems  int64 `json:"total_items"`
	PageSize    int   `json:"page_size"`
	CurrentPage int   `json:"current_page"`
}

func (p *Params) Normalize() error {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}
	if p.SortBy == "" {
		p.SortBy = "id"
	}
	if p.Order == "" {
		p.Order = "desc"
	}

	if p.PageSize < 1 || p.PageSize >= 1000 {
		return apperr.ErrInvalidPageSize
	}
	if p.Page < 0 {
		return apperr.ErrInvalidPage
	}
	p.Order = strings.ToLower(p.Order)
	if p.Order != "asc" && p.Order != "desc" {
		return apperr.ErrInvalidOrder
	}
	return nil
}

// Apply counts the unpaged query and applies ordering, limit and offset.
// Normalize must have been called.
func (p *Params) Apply(query *gorm.DB) (*gorm.DB, *PageInfo, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	query = query.
		Order(fmt.Sprintf("%s %s", p.SortBy, p.Order)).
		Limit(p.PageSize).
		Offset((p.Page - 1) * p.PageSize)

	return query, &PageInfo{
		TotalItems:  total,
		PageSize:    p.PageSize,
		CurrentPage: p.Page,
	}, nil
}
