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

type TeamService struct {
	store  *postgres.Store
	logger *zap.Logger
}

func NewTeamService(store *postgres.Store, logger *zap.Logger) *TeamService {
	return &TeamService{store: store, logger: logger}
}

type TeamCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CompanyID   int64  `json:"company_id"`
}

type TeamUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (s *TeamService) Create(ctx context.Context, req *TeamCreateRequest) (int64, error) {
	if req.Name == "" {
		return 0, apperr.ErrFieldEmpty
	}
	var team model.Team
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := getCompany(tx, req.CompanyID); err != nil {
			return err
		}
		if err := checkTeamNameFree(tx, req.CompanyID, req.Name, 0); err != nil {
			return err
		}
		team = model.Team{
			Name:        req.Name,
			Description: req.Description,
			CompanyID:   req.CompanyID,
			IsActive:    true,
		}
		return tx.Create(&team).Error
	})
	if err != nil {
		return 0, err
	}
	return team.ID, nil
}

// Update edits a team; deactivation retires its memberships with it.
func (s *TeamService) Update(ctx context.Context, id int64, req *TeamUpdateRequest) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var team model.Team
		if err := tx.First(&team, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrTeamNotFound
			}
			return err
		}

		if req.Name != "" && req.Name != team.Name {
			if err := checkTeamNameFree(tx, team.CompanyID, req.Name, team.ID); err != nil {
				return err
			}
			team.Name = req.Name
		}
		if req.Description != "" {
			team.Description = req.Description
		}
		if req.IsActive != nil {
			if !*req.IsActive && team.IsActive {
				err := tx.Model(&model.StaffTeam{}).
					Where("team_id = ? AND is_active", team.ID).
					Update("is_active", false).Error
				if err != nil {
					return err
				}
			}
			team.IsActive = *req.IsActive
		}
		return tx.Save(&team).Error
	})
}

// UpdateStaffs makes staffIDs the team's exact active membership: rows
// outside the set are retired, historical rows inside it revived. Every staff
// must be active and belong to the team's company.
func (s *TeamService) UpdateStaffs(ctx context.Context, id int64, staffIDs []int64) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var team model.Team
		if err := tx.First(&team, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrTeamNotFound
			}
			return err
		}
		if !team.IsActive {
			return apperr.ErrTeamNotFound
		}

		want := make(map[int64]bool, len(staffIDs))
		for _, staffID := range staffIDs {
			staff, err := getActiveStaff(tx, staffID)
			if err != nil {
				return err
			}
			if staff.CompanyID != team.CompanyID {
				return apperr.ErrStaffNotFound
			}
			want[staffID] = true
		}

		var existing []model.StaffTeam
		if err := tx.Where("team_id = ?", team.ID).Find(&existing).Error; err != nil {
			return err
		}
		seen := make(map[int64]bool, len(existing))
		for i := range existing {
			row := &existing[i]
			seen[row.StaffID] = true
			if row.IsActive == want[row.StaffID] {
				continue
			}
			row.IsActive = want[row.StaffID]
			if err := tx.Save(row).Error; err != nil {
				return err
			}
		}
		for staffID := range want {
			if seen[staffID] {
				continue
			}
			row := model.StaffTeam{TeamID: team.ID, StaffID: staffID, IsActive: true}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type TeamListFilter struct {
	CompanyID int64  `form:"company_id"`
	Search    string `form:"search"`
}

// TeamItem is one team with the number of its active members.
type TeamItem struct {
	model.Team
	MemberCount int64 `json:"member_count"`
}

func (s *TeamService) List(ctx context.Context, filter *TeamListFilter, params *paging.Params) ([]TeamItem, *paging.PageInfo, error) {
	if err := params.Normalize(); err != nil {
		return nil, nil, err
	}
	tx := s.store.DB().WithContext(ctx)

	query := tx.Model(&model.Team{}).Where("is_active")
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
	var teams []model.Team
	if err := query.Find(&teams).Error; err != nil {
		return nil, nil, err
	}

	ids := make([]int64, len(teams))
	for i := range teams {
		ids[i] = teams[i].ID
	}
	counts, err := memberCounts(tx, ids)
	if err != nil {
		return nil, nil, err
	}
	items := make([]TeamItem, len(teams))
	for i := range teams {
		items[i] = TeamItem{Team: teams[i], MemberCount: counts[teams[i].ID]}
	}
	return items, info, nil
}

func (s *TeamService) Get(ctx context.Context, id int64) (*TeamItem, error) {
	tx := s.store.DB().WithContext(ctx)
	var team model.Team
	if err := tx.First(&team, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTeamNotFound
		}
		return nil, err
	}
	counts, err := memberCounts(tx, []int64{team.ID})
	if err != nil {
		return nil, err
	}
	return &TeamItem{Team: team, MemberCount: counts[team.ID]}, nil
}

// memberCounts returns active membership counts per team id in one query.
func memberCounts(tx *gorm.DB, teamIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(teamIDs))
	if len(teamIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		TeamID int64
		Total  int64
	}
	err := tx.Model(&model.StaffTeam{}).
		Select("team_id, COUNT(*) AS total").
		Where("team_id IN ? AND is_active", teamIDs).
		Group("team_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TeamID] = row.Total
	}
	return counts, nil
}

// checkTeamNameFree compares case-insensitively against active teams of the
// company only; a retired team's name may be reused.
func checkTeamNameFree(tx *gorm.DB, companyID int64, name string, excludeID int64) error {
	var count int64
	err := tx.Model(&model.Team{}).
		Where("company_id = ? AND is_active AND LOWER(name) = LOWER(?) AND id <> ?",
			companyID, name, excludeID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrTeamNameExists
	}
	return nil
}
