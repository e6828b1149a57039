package apperr

import (
	"errors"
	"fmt"
)

// Error is a business-rule failure with a stable numeric code. Handlers map
// these to HTTP 400 and put the code in the response envelope; anything that
// is not an *Error surfaces as code 999.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

const (
	CodeSuccess     = "000"
	CodeMaintenance = "990"
	CodeInternal    = "999"
)

var (
	ErrFieldEmpty      = New("001", "required field must not be empty")
	ErrInvalidPageSize = New("002", "page size must be between 1 and 999")
	ErrInvalidPage     = New("003", "page must not be negative")
	ErrInvalidField    = New("004", "field value is invalid")
	ErrInvalidOrder    = New("005", "order must be asc or desc")

	ErrBadFileFormat = New("045", "file must be xlsx, xls or csv")

	ErrCompanyNotFound   = New("061", "company not found")
	ErrCompanyIDRequired = New("092", "company id is required")

	ErrDepartmentNotFound       = New("091", "department not found or inactive")
	ErrParentDepartmentNotFound = New("094", "parent department not found")
	ErrDepartmentHasStaff       = New("095", "department still has active staff")
	ErrDepartmentOtherCompany   = New("097", "staff and department belong to different companies")
	ErrRoleTitleNotInDepartment = New("098", "role title does not belong to the department")
	ErrRoleTitleInactive        = New("101", "role title is inactive")
	ErrParentDepartmentInactive = New("104", "parent department is inactive")
	ErrDepartmentInactive       = New("107", "department is inactive")

	ErrEmailNotFound       = New("121", "no staff with this email")
	ErrEmailExists         = New("122", "email already exists")
	ErrEmailCompanyInvalid = New("126", "email does not match any company association")
	ErrManagerOtherCompany = New("129", "manager belongs to a different company")
	ErrManagerNotFound     = New("130", "manager not found or inactive")
	ErrStaffNotFound       = New("134", "staff not found")
	ErrStaffCodeDuplicate  = New("135", "staff code already exists")
	ErrManagerIsSubordinate = New("136", "manager must not be a subordinate of the staff")
	ErrStaffHasSubordinates = New("137", "staff with subordinates cannot be deactivated")
	ErrWrongTemplate        = New("139", "import file does not match the template")
	ErrNoCompanyGiven       = New("140", "at least one company association is required")

	ErrTeamNameExists = New("160", "an active team with this name already exists in the company")
	ErrTeamNotFound   = New("161", "team not found")

	ErrRoleTitleNotFound       = New("191", "role title not found")
	ErrRoleTitleDeptNotInCompany = New("192", "role title department does not belong to the company")
	ErrRoleTitleHasStaff       = New("193", "role title still has active staff")
	ErrRoleTitleDeptImmutable  = New("194", "role title department cannot be changed")
	ErrRoleTitleCompanyImmutable = New("195", "role title company cannot be changed")
	ErrRoleTitleDeptInactive   = New("197", "role title department is inactive")

	ErrProvinceNotFound = New("200", "province code not found")

	ErrNotAllowed = New("999", "caller is not allowed to create users")
)
