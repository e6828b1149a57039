package model

import (
	"time"
)

const (
	ContractOfficial = "official"
	ContractPartTime = "part-time"
)

type Staff struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName      string  `gorm:"not null" json:"full_name"`
	StaffCode     string  `gorm:"uniqueIndex;not null" json:"staff_code"`
	Email         string  `gorm:"uniqueIndex;not null" json:"email"`
	EmailPersonal string  `json:"email_personal,omitempty"`
	PhoneNumber   string  `json:"phone_number"`
	ManagerID     *int64  `gorm:"index" json:"manager_id"`
	Manager       *Staff  `gorm:"foreignKey:ManagerID" json:"-"`
	CompanyID     int64   `gorm:"not null;index" json:"company_id"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	DateOnboard   *time.Time `json:"date_onboard,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	BranchBankName string `json:"branch_bank_name,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
	AddressDetail  string `json:"address_detail,omitempty"`
	IdentityCard   string `json:"identity_card,omitempty"`
	ContractType   string `gorm:"default:official" json:"contract_type"`
	Avatar         string `json:"avatar,omitempty"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CompanyStaff links a staff to a company with the company-specific login
// email. One staff may belong to several companies, each under its own email.
type CompanyStaff struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID int64  `gorm:"not null;index" json:"company_id"`
	StaffID   int64  `gorm:"not null;index" json:"staff_id"`
	Email     string `gorm:"not null;index" json:"email"`
	IsActive  bool   `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DepartmentStaff attaches a staff to a department under a role title. At
// most one row per staff may be active within a company at any time; history
// is kept as inactive rows.
type DepartmentStaff struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DepartmentID int64  `gorm:"not null;index" json:"department_id"`
	StaffID      int64  `gorm:"not null;index" json:"staff_id"`
	RoleTitleID  *int64 `gorm:"index" json:"role_title_id"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StaffTeam struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID    int64 `gorm:"not null;index" json:"team_id"`
	StaffID   int64 `gorm:"not null;index" json:"staff_id"`
	IsActive  bool  `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationStaff maps a province to the staff responsible for it.
type LocationStaff struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	LocationCode string `gorm:"not null;index" json:"location_code"`
	LocationName string `gorm:"not null" json:"location_name"`
	StaffID      *int64 `gorm:"index" json:"staff_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
