package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

type RoleTitleService struct {
	store  *postgres.Store
	logger *zap.Logger
}

func NewRoleTitleService(store *postgres.Store, logger *zap.Logger) *RoleTitleService {
	return &RoleTitleService{store: store, logger: logger}
}

type RoleTitleCreateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	CompanyID    int64  `json:"company_id"`
	DepartmentID *int64 `json:"department_id"`
}

// RoleTitleUpdateRequest edits name, description or activation only; the
// owning company and department are fixed at creation.
type RoleTitleUpdateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	CompanyID    *int64 `json:"company_id"`
	DepartmentID *int64 `json:"department_id"`
	IsActive     *bool  `json:"is_active"`
}

// Create allows duplicate names: two departments may both have a "Manager".
func (s *RoleTitleService) Create(ctx context.Context, req *RoleTitleCreateRequest) (int64, error) {
	if req.Name == "" {
		return 0, apperr.ErrFieldEmpty
	}
	var rt model.RoleTitle
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := getCompany(tx, req.CompanyID); err != nil {
			return err
		}
		if req.DepartmentID != nil {
			dept, err := getDepartment(tx, *req.DepartmentID)
			if err != nil {
				return err
			}
			if dept.CompanyID != req.CompanyID {
				return apperr.ErrRoleTitleDeptNotInCompany
			}
			if !dept.IsActive {
				return apperr.ErrRoleTitleDeptInactive
			}
		}
		rt = model.RoleTitle{
			Name:         req.Name,
			Description:  req.Description,
			CompanyID:    req.CompanyID,
			DepartmentID: req.DepartmentID,
			IsActive:     true,
		}
		return tx.Create(&rt).Error
	})
	if err != nil {
		return 0, err
	}
	return rt.ID, nil
}

func (s *RoleTitleService) Update(ctx context.Context, id int64, req *RoleTitleUpdateRequest) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		rt, err := getRoleTitle(tx, id)
		if err != nil {
			return err
		}

		if req.CompanyID != nil && *req.CompanyID != rt.CompanyID {
			return apperr.ErrRoleTitleCompanyImmutable
		}
		if req.DepartmentID != nil &&
			(rt.DepartmentID == nil || *req.DepartmentID != *rt.DepartmentID) {
			return apperr.ErrRoleTitleDeptImmutable
		}

		if req.IsActive != nil && *req.IsActive != rt.IsActive {
			if *req.IsActive {
				// reviving a title under a retired department is refused
				// before any field is touched
				if rt.DepartmentID != nil {
					dept, err := getDepartment(tx, *rt.DepartmentID)
					if err != nil {
						return err
					}
					if !dept.IsActive {
						return apperr.ErrRoleTitleDeptInactive
					}
				}
			} else {
				var staffCount int64
				err := tx.Model(&model.DepartmentStaff{}).
					Where("role_title_id = ? AND is_active", rt.ID).
					Count(&staffCount).Error
				if err != nil {
					return err
				}
				if staffCount > 0 {
					return apperr.ErrRoleTitleHasStaff
				}
			}
			rt.IsActive = *req.IsActive
		}

		if req.Name != "" {
			rt.Name = req.Name
		}
		if req.Description != "" {
			rt.Description = req.Description
		}
		return tx.Save(rt).Error
	})
}

type RoleTitleListFilter struct {
	CompanyID    int64  `form:"company_id"`
	DepartmentID int64  `form:"department_id"`
	Search       string `form:"search"`
}

func (s *RoleTitleService) List(ctx context.Context, filter *RoleTitleListFilter, params *paging.Params) ([]model.RoleTitle, *paging.PageInfo, error) {
	if err := params.Normalize(); err != nil {
		return nil, nil, err
	}
	tx := s.store.DB().WithContext(ctx)

	query := tx.Model(&model.RoleTitle{}).Where("is_active")
	if filter.CompanyID != 0 {
		if _, err := getCompany(tx, filter.CompanyID); err != nil {
			return nil, nil, err
		}
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.DepartmentID != 0 {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	query, info, err := params.Apply(query)
	if err != nil {
		return nil, nil, err
	}
	var titles []model.RoleTitle
	if err := query.Find(&titles).Error; err != nil {
		return nil, nil, err
	}
	return titles, info, nil
}

func (s *RoleTitleService) Get(ctx context.Context, id int64) (*model.RoleTitle, error) {
	return getRoleTitle(s.store.DB().WithContext(ctx), id)
}
