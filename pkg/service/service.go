// Package service holds the business rules of the directory: cross-entity
// validation for staff, departments, role titles and teams, hierarchy
// maintenance, and the lifecycle invariants around activation state.
package service

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/orgtree"
)

// CompanyAssociation is one company membership carried on a staff payload,
// keyed by the company-specific login email.
type CompanyAssociation struct {
	CompanyID int64  `json:"id"`
	Email     string `json:"email"`
}

// DepartmentAttachment places a staff into a department under a role title.
type DepartmentAttachment struct {
	DepartmentID int64  `json:"department_id"`
	RoleTitleID  *int64 `json:"role_title_id"`
	IsActive     *bool  `json:"is_active"`
}

type ManagerRef struct {
	ID       *int64 `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type DepartmentRef struct {
	DepartmentID   int64  `json:"department_id"`
	DepartmentName string `json:"department_name"`
	RoleTitleID    *int64 `json:"role_title_id"`
	RoleTitle      string `json:"role_title"`
}

var validate = validator.New()

// validEmail is the shared address check used by create, update and import.
func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func getCompany(tx *gorm.DB, id int64) (*model.Company, error) {
	var company model.Company
	if err := tx.First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func getDepartment(tx *gorm.DB, id int64) (*model.Department, error) {
	var dept model.Department
	if err := tx.First(&dept, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func getRoleTitle(tx *gorm.DB, id int64) (*model.RoleTitle, error) {
	var rt model.RoleTitle
	if err := tx.First(&rt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrRoleTitleNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// validateRoleTitleInDepartment applies the role-title attach rule: the title
// must exist, be active, and be owned by the department.
func validateRoleTitleInDepartment(tx *gorm.DB, dept *model.Department, roleTitleID int64) (*model.RoleTitle, error) {
	rt, err := getRoleTitle(tx, roleTitleID)
	if err != nil {
		return nil, err
	}
	if !rt.IsActive {
		return nil, apperr.ErrRoleTitleInactive
	}
	if rt.DepartmentID == nil || *rt.DepartmentID != dept.ID {
		return nil, apperr.ErrRoleTitleNotInDepartment
	}
	return rt, nil
}

// attachStaffToDepartment keeps the one-active-attachment-per-company
// invariant. Within companyID: no prior rows means a fresh insert; an active
// row in the same department is updated in place; an active row elsewhere is
// deactivated and the target department gets its historical row revived or a
// new one inserted.
func attachStaffToDepartment(tx *gorm.DB, companyID, staffID int64, att *DepartmentAttachment) (*model.RoleTitle, error) {
	dept, err := getDepartment(tx, att.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperr.ErrDepartmentNotFound
	}
	if dept.CompanyID != companyID {
		return nil, apperr.ErrDepartmentOtherCompany
	}

	var roleTitle *model.RoleTitle
	if att.RoleTitleID != nil {
		roleTitle, err = validateRoleTitleInDepartment(tx, dept, *att.RoleTitleID)
		if err != nil {
			return nil, err
		}
	}

	active := true
	if att.IsActive != nil {
		active = *att.IsActive
	}

	var companyDeptIDs []int64
	if err := tx.Model(&model.Department{}).
		Where("company_id = ?", companyID).
		Pluck("id", &companyDeptIDs).Error; err != nil {
		return nil, err
	}

	var existing []model.DepartmentStaff
	if err := tx.Where("staff_id = ? AND department_id IN ?", staffID, companyDeptIDs).
		Find(&existing).Error; err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		row := model.DepartmentStaff{
			DepartmentID: dept.ID,
			StaffID:      staffID,
			RoleTitleID:  att.RoleTitleID,
			IsActive:     active,
		}
		return roleTitle, tx.Create(&row).Error
	}

	for i := range existing {
		current := &existing[i]
		if !current.IsActive {
			continue
		}
		if current.DepartmentID == dept.ID {
			if att.RoleTitleID != nil {
				current.RoleTitleID = att.RoleTitleID
			}
			current.IsActive = active
			return roleTitle, tx.Save(current).Error
		}
		// switching departments: retire the old attachment first
		current.IsActive = false
		if err := tx.Save(current).Error; err != nil {
			return nil, err
		}
		break
	}

	for i := range existing {
		current := &existing[i]
		if current.DepartmentID == dept.ID {
			if att.RoleTitleID != nil {
				current.RoleTitleID = att.RoleTitleID
			}
			current.IsActive = active
			return roleTitle, tx.Save(current).Error
		}
	}

	row := model.DepartmentStaff{
		DepartmentID: dept.ID,
		StaffID:      staffID,
		RoleTitleID:  att.RoleTitleID,
		IsActive:     active,
	}
	return roleTitle, tx.Create(&row).Error
}

// activeDescendantIDs walks the manager tree over the company's active staff
// and returns every transitive subordinate of rootID.
func activeDescendantIDs(tx *gorm.DB, companyID, rootID int64) ([]int64, error) {
	var rows []model.Staff
	if err := tx.Model(&model.Staff{}).
		Select("id, manager_id").
		Where("company_id = ? AND is_active", companyID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return orgtree.DescendantIDs(rows,
		func(s model.Staff) int64 { return s.ID },
		func(s model.Staff) *int64 { return s.ManagerID },
		rootID), nil
}
