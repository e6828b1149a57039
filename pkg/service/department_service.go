package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/orgtree"
	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

type DepartmentService struct {
	store  *postgres.Store
	logger *zap.Logger
}

func NewDepartmentService(store *postgres.Store, logger *zap.Logger) *DepartmentService {
	return &DepartmentService{store: store, logger: logger}
}

type DepartmentCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CompanyID   int64  `json:"company_id"`
	ParentID    *int64 `json:"parent_id"`
}

type DepartmentUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
	IsActive    *bool  `json:"is_active"`
}

func (s *DepartmentService) Create(ctx context.Context, req *DepartmentCreateRequest) (int64, error) {
	if req.Name == "" {
		return 0, apperr.ErrFieldEmpty
	}
	var dept model.Department
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := getCompany(tx, req.CompanyID); err != nil {
			return err
		}
		if req.ParentID != nil {
			if err := checkParentDepartment(tx, req.CompanyID, *req.ParentID); err != nil {
				return err
			}
		}
		dept = model.Department{
			Name:        req.Name,
			Description: req.Description,
			CompanyID:   req.CompanyID,
			ParentID:    req.ParentID,
			IsActive:    true,
		}
		return tx.Create(&dept).Error
	})
	if err != nil {
		return 0, err
	}
	return dept.ID, nil
}

// Update edits a department; deactivation cascades over the whole subtree
// and retires each subtree department's role titles.
func (s *DepartmentService) Update(ctx context.Context, id int64, req *DepartmentUpdateRequest) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		dept, err := getDepartment(tx, id)
		if err != nil {
			return err
		}

		if req.ParentID != nil {
			if *req.ParentID == dept.ID {
				return apperr.ErrParentDepartmentNotFound
			}
			if err := checkParentDepartment(tx, dept.CompanyID, *req.ParentID); err != nil {
				return err
			}
			descendants, err := departmentDescendantIDs(tx, dept.CompanyID, dept.ID)
			if err != nil {
				return err
			}
			for _, descID := range descendants {
				if descID == *req.ParentID {
					return apperr.ErrParentDepartmentNotFound
				}
			}
			dept.ParentID = req.ParentID
		}

		if req.Name != "" {
			dept.Name = req.Name
		}
		if req.Description != "" {
			dept.Description = req.Description
		}

		if req.IsActive != nil && !*req.IsActive && dept.IsActive {
			if err := tx.Save(dept).Error; err != nil {
				return err
			}
			return s.deactivate(tx, dept)
		}
		if req.IsActive != nil {
			dept.IsActive = *req.IsActive
		}
		return tx.Save(dept).Error
	})
}

// deactivate refuses while the department itself still has active staff,
// then retires the department, its whole subtree and their role titles.
// Subtree departments are not re-checked for staff; their attachments go
// inactive with them.
func (s *DepartmentService) deactivate(tx *gorm.DB, dept *model.Department) error {
	var staffCount int64
	err := tx.Model(&model.DepartmentStaff{}).
		Where("department_id = ? AND is_active", dept.ID).
		Count(&staffCount).Error
	if err != nil {
		return err
	}
	if staffCount > 0 {
		return apperr.ErrDepartmentHasStaff
	}

	descendants, err := departmentDescendantIDs(tx, dept.CompanyID, dept.ID)
	if err != nil {
		return err
	}
	ids := append([]int64{dept.ID}, descendants...)

	if err := tx.Model(&model.Department{}).
		Where("id IN ?", ids).
		Update("is_active", false).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.RoleTitle{}).
		Where("department_id IN ? AND is_active", ids).
		Update("is_active", false).Error; err != nil {
		return err
	}
	return tx.Model(&model.DepartmentStaff{}).
		Where("department_id IN ? AND is_active", descendants).
		Update("is_active", false).Error
}

// UpdateStaff places one staff into this department, reusing the shared
// attachment rule.
func (s *DepartmentService) UpdateStaff(ctx context.Context, departmentID, staffID int64, roleTitleID *int64) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		dept, err := getDepartment(tx, departmentID)
		if err != nil {
			return err
		}
		if _, err := getActiveStaff(tx, staffID); err != nil {
			return err
		}
		_, err = attachStaffToDepartment(tx, dept.CompanyID, staffID, &DepartmentAttachment{
			DepartmentID: departmentID,
			RoleTitleID:  roleTitleID,
		})
		return err
	})
}

// Tree returns the company's active departments as a parent-child forest.
func (s *DepartmentService) Tree(ctx context.Context, companyID int64) ([]*orgtree.Node[model.Department], error) {
	tx := s.store.DB().WithContext(ctx)
	if _, err := getCompany(tx, companyID); err != nil {
		return nil, err
	}
	var depts []model.Department
	err := tx.Where("company_id = ? AND is_active", companyID).
		Order("id").
		Find(&depts).Error
	if err != nil {
		return nil, err
	}
	return orgtree.Build(depts,
		func(d model.Department) int64 { return d.ID },
		func(d model.Department) *int64 { return d.ParentID }), nil
}

type DepartmentListFilter struct {
	CompanyID int64  `form:"company_id"`
	Search    string `form:"search"`
}

func (s *DepartmentService) List(ctx context.Context, filter *DepartmentListFilter, params *paging.Params) ([]model.Department, *paging.PageInfo, error) {
	if err := params.Normalize(); err != nil {
		return nil, nil, err
	}
	tx := s.store.DB().WithContext(ctx)

	query := tx.Model(&model.Department{}).Where("is_active")
	if filter.CompanyID != 0 {
		if _, err := getCompany(tx, filter.CompanyID); err != nil {
			return nil, nil, err
		}
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	query, info, err := params.Apply(query)
	if err != nil {
		return nil, nil, err
	}
	var depts []model.Department
	if err := query.Find(&depts).Error; err != nil {
		return nil, nil, err
	}
	return depts, info, nil
}

func (s *DepartmentService) Get(ctx context.Context, id int64) (*model.Department, error) {
	return getDepartment(s.store.DB().WithContext(ctx), id)
}

func checkParentDepartment(tx *gorm.DB, companyID, parentID int64) error {
	var parent model.Department
	if err := tx.First(&parent, parentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.ErrParentDepartmentNotFound
		}
		return err
	}
	if parent.CompanyID != companyID {
		return apperr.ErrParentDepartmentNotFound
	}
	if !parent.IsActive {
		return apperr.ErrParentDepartmentInactive
	}
	return nil
}

func departmentDescendantIDs(tx *gorm.DB, companyID, rootID int64) ([]int64, error) {
	var depts []model.Department
	err := tx.Select("id, parent_id").
		Where("company_id = ?", companyID).
		Find(&depts).Error
	if err != nil {
		return nil, err
	}
	return orgtree.DescendantIDs(depts,
		func(d model.Department) int64 { return d.ID },
		func(d model.Department) *int64 { return d.ParentID },
		rootID), nil
}
