package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// LocationService maintains the province-to-staff responsibility map.
type LocationService struct {
	store *postgres.Store
}

func NewLocationService(store *postgres.Store) *LocationService {
	return &LocationService{store: store}
}

func (s *LocationService) List(ctx context.Context) ([]model.LocationStaff, error) {
	var rows []model.LocationStaff
	err := s.store.DB().WithContext(ctx).Order("location_code").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Assign points a province at a staff; a nil staffID leaves the province
// unowned.
func (s *LocationService) Assign(ctx context.Context, locationCode string, staffID *int64) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var row model.LocationStaff
		err := tx.Where("location_code = ?", locationCode).First(&row).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrProvinceNotFound
			}
			return err
		}
		if staffID != nil {
			if _, err := getActiveStaff(tx, *staffID); err != nil {
				return err
			}
		}
		row.StaffID = staffID
		return tx.Save(&row).Error
	})
}

// StaffForProvince resolves the staff responsible for a province code.
func (s *LocationService) StaffForProvince(ctx context.Context, locationCode string) (*model.Staff, error) {
	tx := s.store.DB().WithContext(ctx)
	var row model.LocationStaff
	err := tx.Where("location_code = ?", locationCode).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrProvinceNotFound
		}
		return nil, err
	}
	if row.StaffID == nil {
		return nil, apperr.ErrStaffNotFound
	}
	return getActiveStaff(tx, *row.StaffID)
}
