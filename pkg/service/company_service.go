package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// CompanyService reads companies and corporations. Both are reference data
// provisioned out of band, so there is no write surface here.
type CompanyService struct {
	store *postgres.Store
}

func NewCompanyService(store *postgres.Store) *CompanyService {
	return &CompanyService{store: store}
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*model.Company, error) {
	return getCompany(s.store.DB().WithContext(ctx), id)
}

func (s *CompanyService) GetByCode(ctx context.Context, code string) (*model.Company, error) {
	var company model.Company
	err := s.store.DB().WithContext(ctx).
		Where("code = ?", code).First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (s *CompanyService) List(ctx context.Context, params *paging.Params) ([]model.Company, *paging.PageInfo, error) {
	if err := params.Normalize(); err != nil {
		return nil, nil, err
	}
	query := s.store.DB().WithContext(ctx).Model(&model.Company{})
	query, info, err := params.Apply(query)
	if err != nil {
		return nil, nil, err
	}
	var companies []model.Company
	if err := query.Find(&companies).Error; err != nil {
		return nil, nil, err
	}
	return companies, info, nil
}

// ListCorporations returns every corporation with its companies preloaded.
func (s *CompanyService) ListCorporations(ctx context.Context) ([]model.Corporation, error) {
	var corps []model.Corporation
	err := s.store.DB().WithContext(ctx).
		Preload("Companies").
		Order("id").
		Find(&corps).Error
	if err != nil {
		return nil, err
	}
	return corps, nil
}
