package model

import (
	"time"
)

type Corporation struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Companies []Company `gorm:"foreignKey:CorporationID" json:"companies,omitempty"`
}

type Company struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string  `gorm:"uniqueIndex;not null" json:"code"`
	Name          string  `gorm:"not null" json:"name"`
	Description   string  `json:"description"`
	CorporationID *int64  `gorm:"index" json:"corporation_id"`
	Corporation   *Corporation `gorm:"foreignKey:CorporationID" json:"corporation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Department struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CompanyID   int64  `gorm:"not null;index" json:"company_id"`
	Company     *Company `gorm:"foreignKey:CompanyID" json:"-"`
	ParentID    *int64 `gorm:"index" json:"parent_id"`
	Parent      *Department `gorm:"foreignKey:ParentID" json:"-"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoleTitle struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Description  string `json:"description"`
	CompanyID    int64  `gorm:"not null;index" json:"company_id"`
	DepartmentID *int64 `gorm:"index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"-"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Team struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null;index" json:"name"`
	Description string `json:"description"`
	CompanyID   int64  `gorm:"not null;index" json:"company_id"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
