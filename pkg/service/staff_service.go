package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/metrics"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/orgtree"
	"github.com/staffdir/staffdir/pkg/paging"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// TaskEnqueuer hands work to the identity-sync worker; satisfied by
// queue.TaskQueue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) error
}

// TrustChecker is the synchronous permission gate consulted before a sales
// account is minted; satisfied by iam.Client.
type TrustChecker interface {
	ValidateCanCreateUser(ctx context.Context, token string) (string, error)
}

// StaffService owns staff lifecycle and the reporting-line hierarchy.
type StaffService struct {
	store  *postgres.Store
	iam    TrustChecker
	tasks  TaskEnqueuer
	logger *zap.Logger
}

func NewStaffService(store *postgres.Store, iamClient TrustChecker, tasks TaskEnqueuer, logger *zap.Logger) *StaffService {
	return &StaffService{store: store, iam: iamClient, tasks: tasks, logger: logger}
}

type StaffCreateRequest struct {
	FullName      string               `json:"full_name"`
	StaffCode     string               `json:"staff_code"`
	Email         string               `json:"email"`
	EmailPersonal string               `json:"email_personal"`
	PhoneNumber   string               `json:"phone_number"`
	ManagerID     *int64               `json:"manager_id"`
	Companies     []CompanyAssociation `json:"companies"`
	Department    *DepartmentAttachment `json:"department"`
	TeamIDs       []int64              `json:"teams"`
	DateOfBirth   *time.Time           `json:"date_of_birth"`
	DateOnboard   *time.Time           `json:"date_onboard"`
	BankName       string `json:"bank_name"`
	BranchBankName string `json:"branch_bank_name"`
	AccountNumber  string `json:"account_number"`
	AddressDetail  string `json:"address_detail"`
	IdentityCard   string `json:"identity_card"`
	ContractType   string `json:"contract_type"`
	Avatar         string `json:"avatar"`
}

// StaffUpdateRequest carries partial updates: empty strings leave the field
// untouched. ManagerID always overwrites, so omitting it clears the manager.
type StaffUpdateRequest struct {
	FullName      string               `json:"full_name"`
	StaffCode     string               `json:"staff_code"`
	Email         string               `json:"email"`
	EmailPersonal string               `json:"email_personal"`
	PhoneNumber   string               `json:"phone_number"`
	ManagerID     *int64               `json:"manager_id"`
	Companies     []CompanyAssociation `json:"companies"`
	Department    *DepartmentAttachment `json:"department"`
	TeamIDs       *[]int64             `json:"teams"`
	IsActive      *bool                `json:"is_active"`
	DateOfBirth   *time.Time           `json:"date_of_birth"`
	DateOnboard   *time.Time           `json:"date_onboard"`
	BankName       string `json:"bank_name"`
	BranchBankName string `json:"branch_bank_name"`
	AccountNumber  string `json:"account_number"`
	AddressDetail  string `json:"address_detail"`
	IdentityCard   string `json:"identity_card"`
	ContractType   string `json:"contract_type"`
	Avatar         string `json:"avatar"`
}

// Create validates and persists one staff in a single transaction, then hands
// the identity sync off to the task queue. Validation order is fixed so
// callers get stable error codes: associations, required fields, field
// formats, company existence, email-to-company resolution, manager,
// uniqueness, department, teams.
func (s *StaffService) Create(ctx context.Context, token string, req *StaffCreateRequest) (int64, error) {
	if len(req.Companies) == 0 {
		return 0, apperr.ErrNoCompanyGiven
	}
	if strings.TrimSpace(req.FullName) == "" ||
		strings.TrimSpace(req.StaffCode) == "" ||
		strings.TrimSpace(req.Email) == "" {
		return 0, apperr.ErrFieldEmpty
	}
	if !validEmail(req.Email) {
		return 0, apperr.ErrInvalidField
	}
	if req.PhoneNumber != "" && !model.ValidPhone(req.PhoneNumber) {
		return 0, apperr.ErrInvalidField
	}

	var (
		staff    model.Staff
		roleName string
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		for _, assoc := range req.Companies {
			if _, err := getCompany(tx, assoc.CompanyID); err != nil {
				return err
			}
		}

		companyID := int64(0)
		for _, assoc := range req.Companies {
			if strings.EqualFold(assoc.Email, req.Email) {
				companyID = assoc.CompanyID
				break
			}
		}
		if companyID == 0 {
			return apperr.ErrEmailCompanyInvalid
		}

		if req.ManagerID != nil {
			manager, err := getActiveStaff(tx, *req.ManagerID)
			if err != nil {
				return apperr.ErrManagerNotFound
			}
			if manager.CompanyID != companyID {
				return apperr.ErrManagerOtherCompany
			}
		}

		if err := checkEmailFree(tx, req.Email, 0); err != nil {
			return err
		}
		if err := checkStaffCodeFree(tx, req.StaffCode, 0); err != nil {
			return err
		}

		contractType := req.ContractType
		if contractType == "" {
			contractType = model.ContractOfficial
		}
		staff = model.Staff{
			FullName:       req.FullName,
			StaffCode:      req.StaffCode,
			Email:          req.Email,
			EmailPersonal:  req.EmailPersonal,
			PhoneNumber:    req.PhoneNumber,
			ManagerID:      req.ManagerID,
			CompanyID:      companyID,
			DateOfBirth:    req.DateOfBirth,
			DateOnboard:    req.DateOnboard,
			BankName:       req.BankName,
			BranchBankName: req.BranchBankName,
			AccountNumber:  req.AccountNumber,
			AddressDetail:  req.AddressDetail,
			IdentityCard:   req.IdentityCard,
			ContractType:   contractType,
			Avatar:         req.Avatar,
			IsActive:       true,
		}
		if err := tx.Create(&staff).Error; err != nil {
			return err
		}

		for _, assoc := range req.Companies {
			row := model.CompanyStaff{
				CompanyID: assoc.CompanyID,
				StaffID:   staff.ID,
				Email:     assoc.Email,
				IsActive:  true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		if req.Department != nil {
			roleTitle, err := attachStaffToDepartment(tx, companyID, staff.ID, req.Department)
			if err != nil {
				return err
			}
			if roleTitle != nil {
				roleName = roleTitle.Name
			}
		}

		if err := updateStaffTeams(tx, companyID, staff.ID, req.TeamIDs); err != nil {
			return err
		}

		if model.IsSalesRole(roleName) {
			// the caller must be trusted before a sales account may be minted
			if _, err := s.iam.ValidateCanCreateUser(ctx, token); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.StaffOperationsTotal.WithLabelValues("create", "error").Inc()
		return 0, err
	}
	metrics.StaffOperationsTotal.WithLabelValues("create", "ok").Inc()

	s.enqueueSync(ctx, token, &staff, roleName)
	return staff.ID, nil
}

// Update applies a partial update. The subordinate set is computed before any
// write so the cycle and deactivation checks see the pre-update hierarchy.
func (s *StaffService) Update(ctx context.Context, token string, id int64, req *StaffUpdateRequest) error {
	if req.PhoneNumber != "" && !model.ValidPhone(req.PhoneNumber) {
		return apperr.ErrInvalidField
	}

	var (
		staff    model.Staff
		roleName string
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&staff, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrStaffNotFound
			}
			return err
		}

		descendants, err := activeDescendantIDs(tx, staff.CompanyID, staff.ID)
		if err != nil {
			return err
		}

		for _, assoc := range req.Companies {
			if _, err := getCompany(tx, assoc.CompanyID); err != nil {
				return err
			}
		}

		if req.ManagerID != nil {
			manager, err := getActiveStaff(tx, *req.ManagerID)
			if err != nil {
				return apperr.ErrManagerNotFound
			}
			if manager.CompanyID != staff.CompanyID {
				return apperr.ErrManagerOtherCompany
			}
			for _, descID := range descendants {
				if descID == *req.ManagerID {
					return apperr.ErrManagerIsSubordinate
				}
			}
		}

		if req.IsActive != nil && !*req.IsActive && len(descendants) > 0 {
			return apperr.ErrStaffHasSubordinates
		}

		if req.Email != "" && !strings.EqualFold(req.Email, staff.Email) {
			if err := checkEmailFree(tx, req.Email, staff.ID); err != nil {
				return err
			}
		}
		if req.StaffCode != "" && req.StaffCode != staff.StaffCode {
			if err := checkStaffCodeFree(tx, req.StaffCode, staff.ID); err != nil {
				return err
			}
		}

		if req.Department != nil {
			roleTitle, err := attachStaffToDepartment(tx, staff.CompanyID, staff.ID, req.Department)
			if err != nil {
				return err
			}
			if roleTitle != nil {
				roleName = roleTitle.Name
			}
		}

		if req.TeamIDs != nil {
			if err := replaceStaffTeams(tx, staff.CompanyID, staff.ID, *req.TeamIDs); err != nil {
				return err
			}
		}

		oldEmail := staff.Email
		applyString := func(dst *string, src string) {
			if src != "" {
				*dst = src
			}
		}
		applyString(&staff.FullName, req.FullName)
		applyString(&staff.StaffCode, req.StaffCode)
		applyString(&staff.Email, req.Email)
		applyString(&staff.EmailPersonal, req.EmailPersonal)
		applyString(&staff.PhoneNumber, req.PhoneNumber)
		applyString(&staff.BankName, req.BankName)
		applyString(&staff.BranchBankName, req.BranchBankName)
		applyString(&staff.AccountNumber, req.AccountNumber)
		applyString(&staff.AddressDetail, req.AddressDetail)
		applyString(&staff.IdentityCard, req.IdentityCard)
		applyString(&staff.ContractType, req.ContractType)
		applyString(&staff.Avatar, req.Avatar)
		staff.ManagerID = req.ManagerID
		if req.DateOfBirth != nil {
			staff.DateOfBirth = req.DateOfBirth
		}
		if req.DateOnboard != nil {
			staff.DateOnboard = req.DateOnboard
		}
		if req.IsActive != nil {
			staff.IsActive = *req.IsActive
		}

		if staff.Email != oldEmail {
			err := tx.Model(&model.CompanyStaff{}).
				Where("staff_id = ? AND email = ?", staff.ID, oldEmail).
				Update("email", staff.Email).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Save(&staff).Error; err != nil {
			return err
		}

		if !staff.IsActive {
			return deactivateAssociations(tx, staff.ID)
		}
		return nil
	})
	if err != nil {
		metrics.StaffOperationsTotal.WithLabelValues("update", "error").Inc()
		return err
	}
	metrics.StaffOperationsTotal.WithLabelValues("update", "ok").Inc()

	if staff.IsActive {
		s.enqueueSync(ctx, token, &staff, roleName)
	}
	return nil
}

// enqueueSync hands a sales-role staff to the identity worker. Non-sales
// roles have no IAM footprint and are skipped.
func (s *StaffService) enqueueSync(ctx context.Context, token string, staff *model.Staff, roleName string) {
	if !model.IsSalesRole(roleName) {
		return
	}
	task := &queue.Task{
		Type:        queue.TaskStaffSync,
		Token:       token,
		FullName:    staff.FullName,
		Email:       staff.Email,
		PhoneNumber: staff.PhoneNumber,
		RoleName:    roleName,
	}
	if err := s.tasks.Enqueue(ctx, task); err != nil {
		s.logger.Error("enqueue identity sync failed",
			zap.String("email", staff.Email), zap.Error(err))
	}
}

func getActiveStaff(tx *gorm.DB, id int64) (*model.Staff, error) {
	var staff model.Staff
	if err := tx.Where("id = ? AND is_active", id).First(&staff).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrStaffNotFound
		}
		return nil, err
	}
	return &staff, nil
}

// checkEmailFree enforces email uniqueness across both the staff table and
// every company association.
func checkEmailFree(tx *gorm.DB, email string, excludeStaffID int64) error {
	var count int64
	err := tx.Model(&model.Staff{}).
		Where("LOWER(email) = LOWER(?) AND id <> ?", email, excludeStaffID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrEmailExists
	}
	err = tx.Model(&model.CompanyStaff{}).
		Where("LOWER(email) = LOWER(?) AND staff_id <> ?", email, excludeStaffID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrEmailExists
	}
	return nil
}

func checkStaffCodeFree(tx *gorm.DB, code string, excludeStaffID int64) error {
	var count int64
	err := tx.Model(&model.Staff{}).
		Where("staff_code = ? AND id <> ?", code, excludeStaffID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrStaffCodeDuplicate
	}
	return nil
}

// updateStaffTeams inserts memberships for teamIDs without touching existing
// rows; used on create where there is nothing to replace.
func updateStaffTeams(tx *gorm.DB, companyID, staffID int64, teamIDs []int64) error {
	for _, teamID := range teamIDs {
		if err := checkTeamUsable(tx, companyID, teamID); err != nil {
			return err
		}
		row := model.StaffTeam{TeamID: teamID, StaffID: staffID, IsActive: true}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// replaceStaffTeams makes teamIDs the staff's exact active membership set:
// rows outside the set are deactivated, historical rows inside it revived.
func replaceStaffTeams(tx *gorm.DB, companyID, staffID int64, teamIDs []int64) error {
	want := make(map[int64]bool, len(teamIDs))
	for _, teamID := range teamIDs {
		if err := checkTeamUsable(tx, companyID, teamID); err != nil {
			return err
		}
		want[teamID] = true
	}

	var existing []model.StaffTeam
	if err := tx.Where("staff_id = ?", staffID).Find(&existing).Error; err != nil {
		return err
	}
	seen := make(map[int64]bool, len(existing))
	for i := range existing {
		row := &existing[i]
		seen[row.TeamID] = true
		if row.IsActive == want[row.TeamID] {
			continue
		}
		row.IsActive = want[row.TeamID]
		if err := tx.Save(row).Error; err != nil {
			return err
		}
	}
	for teamID := range want {
		if seen[teamID] {
			continue
		}
		row := model.StaffTeam{TeamID: teamID, StaffID: staffID, IsActive: true}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func checkTeamUsable(tx *gorm.DB, companyID, teamID int64) error {
	var team model.Team
	if err := tx.First(&team, teamID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.ErrTeamNotFound
		}
		return err
	}
	if !team.IsActive || team.CompanyID != companyID {
		return apperr.ErrTeamNotFound
	}
	return nil
}

// deactivateAssociations retires every association row of a deactivated
// staff so lookups never resolve through a dead link.
func deactivateAssociations(tx *gorm.DB, staffID int64) error {
	if err := tx.Model(&model.CompanyStaff{}).
		Where("staff_id = ? AND is_active", staffID).
		Update("is_active", false).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.StaffTeam{}).
		Where("staff_id = ? AND is_active", staffID).
		Update("is_active", false).Error; err != nil {
		return err
	}
	return tx.Model(&model.DepartmentStaff{}).
		Where("staff_id = ? AND is_active", staffID).
		Update("is_active", false).Error
}

// StaffItem is one hydrated staff entry: the entity plus resolved manager,
// department placement and team memberships.
type StaffItem struct {
	ID          int64   `json:"id"`
	FullName    string  `json:"full_name"`
	StaffCode   string  `json:"staff_code"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phone_number"`
	Avatar      string  `json:"avatar,omitempty"`
	CompanyID   int64   `json:"company_id"`
	IsActive    bool    `json:"is_active"`
	Manager     *ManagerRef    `json:"manager"`
	Department  *DepartmentRef `json:"department"`
	Teams       []orgtree.TeamRef `json:"teams"`
}

type staffJoinRow struct {
	ID          int64
	FullName    string
	StaffCode   string
	Email       string
	PhoneNumber string
	Avatar      string
	CompanyID   int64
	IsActive    bool
	ManagerID       *int64
	ManagerFullName *string
	ManagerEmail    *string
	DepartmentID   *int64
	DepartmentName *string
	RoleTitleID    *int64
	RoleTitleName  *string
}

func (r *staffJoinRow) toItem(teams []orgtree.TeamRef) StaffItem {
	item := StaffItem{
		ID:          r.ID,
		FullName:    r.FullName,
		StaffCode:   r.StaffCode,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Avatar:      r.Avatar,
		CompanyID:   r.CompanyID,
		IsActive:    r.IsActive,
		Teams:       teams,
	}
	if r.ManagerID != nil {
		item.Manager = &ManagerRef{ID: r.ManagerID}
		if r.ManagerFullName != nil {
			item.Manager.FullName = *r.ManagerFullName
		}
		if r.ManagerEmail != nil {
			item.Manager.Email = *r.ManagerEmail
		}
	}
	if r.DepartmentID != nil {
		item.Department = &DepartmentRef{
			DepartmentID: *r.DepartmentID,
			RoleTitleID:  r.RoleTitleID,
		}
		if r.DepartmentName != nil {
			item.Department.DepartmentName = *r.DepartmentName
		}
		if r.RoleTitleName != nil {
			item.Department.RoleTitle = *r.RoleTitleName
		}
	}
	return item
}

func staffJoinQuery(tx *gorm.DB) *gorm.DB {
	return tx.Model(&model.Staff{}).
		Select(`staffs.id, staffs.full_name, staffs.staff_code, staffs.email,
			staffs.phone_number, staffs.avatar, staffs.company_id, staffs.is_active,
			staffs.manager_id,
			managers.full_name AS manager_full_name, managers.email AS manager_email,
			departments.id AS department_id, departments.name AS department_name,
			role_titles.id AS role_title_id, role_titles.name AS role_title_name`).
		Joins("LEFT JOIN staffs AS managers ON managers.id = staffs.manager_id").
		Joins("LEFT JOIN department_staffs ON department_staffs.staff_id = staffs.id AND department_staffs.is_active").
		Joins("LEFT JOIN departments ON departments.id = department_staffs.department_id AND departments.is_active").
		Joins("LEFT JOIN role_titles ON role_titles.id = department_staffs.role_title_id")
}

// loadTeamMemberships returns team refs per staff id for active memberships
// in active teams, inputs pre-sorted for the merge.
func loadTeamMemberships(tx *gorm.DB, staffIDs []int64) (map[int64][]orgtree.TeamRef, error) {
	sorted := make([]int64, len(staffIDs))
	copy(sorted, staffIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var memberships []orgtree.Membership
	err := tx.Model(&model.StaffTeam{}).
		Select("staff_teams.staff_id, teams.id AS team_id, teams.name AS team_name").
		Joins("JOIN teams ON teams.id = staff_teams.team_id AND teams.is_active").
		Where("staff_teams.is_active AND staff_teams.staff_id IN ?", sorted).
		Order("staff_teams.staff_id").
		Scan(&memberships).Error
	if err != nil {
		return nil, err
	}
	return orgtree.MergeTeams(sorted, memberships), nil
}

// Tree returns the company's reporting hierarchy as a forest of hydrated
// staff nodes, each carrying its transitive subordinate count.
func (s *StaffService) Tree(ctx context.Context, companyID int64) ([]*orgtree.Node[StaffItem], error) {
	tx := s.store.DB().WithContext(ctx)
	if _, err := getCompany(tx, companyID); err != nil {
		return nil, err
	}

	var rows []staffJoinRow
	err := staffJoinQuery(tx).
		Where("staffs.company_id = ? AND staffs.is_active", companyID).
		Order("staffs.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	teams, err := loadTeamMemberships(tx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]StaffItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toItem(teams[rows[i].ID])
	}
	return orgtree.Build(items,
		func(item StaffItem) int64 { return item.ID },
		func(item StaffItem) *int64 {
			if item.Manager == nil {
				return nil
			}
			return item.Manager.ID
		}), nil
}

// StaffDetail is one staff with its subtree of subordinates and its company
// memberships.
type StaffDetail struct {
	Staff     *orgtree.Node[StaffItem] `json:"staff"`
	Companies []model.CompanyStaff     `json:"companies"`
}

// Detail returns one active staff rooted at the top of its own subtree.
func (s *StaffService) Detail(ctx context.Context, id int64) (*StaffDetail, error) {
	tx := s.store.DB().WithContext(ctx)

	var staff model.Staff
	if err := tx.Where("id = ? AND is_active", id).First(&staff).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrStaffNotFound
		}
		return nil, err
	}

	forest, err := s.Tree(ctx, staff.CompanyID)
	if err != nil {
		return nil, err
	}
	node := findNode(forest, id)
	if node == nil {
		return nil, apperr.ErrStaffNotFound
	}

	var companies []model.CompanyStaff
	if err := tx.Where("staff_id = ? AND is_active", id).Find(&companies).Error; err != nil {
		return nil, err
	}
	return &StaffDetail{Staff: node, Companies: companies}, nil
}

// DetailByEmail resolves an email through the company associations first so
// secondary-company logins also find their staff.
func (s *StaffService) DetailByEmail(ctx context.Context, email string) (*StaffDetail, error) {
	tx := s.store.DB().WithContext(ctx)

	var assoc model.CompanyStaff
	err := tx.Where("LOWER(email) = LOWER(?) AND is_active", email).First(&assoc).Error
	if err == nil {
		return s.Detail(ctx, assoc.StaffID)
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var staff model.Staff
	err = tx.Where("LOWER(email) = LOWER(?) AND is_active", email).First(&staff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrEmailNotFound
		}
		return nil, err
	}
	return s.Detail(ctx, staff.ID)
}

func findNode(forest []*orgtree.Node[StaffItem], id int64) *orgtree.Node[StaffItem] {
	for _, node := range forest {
		if node.ID == id {
			return node
		}
		if found := findNode(node.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// StaffListFilter narrows List; zero values mean no constraint.
type StaffListFilter struct {
	Search        string  `form:"search"`
	CompanyID     int64   `form:"company_id"`
	DepartmentIDs []int64 `form:"department_ids"`
	TeamIDs       []int64 `form:"team_ids"`
	ManagerIDs    []int64 `form:"manager_ids"`
	IDs           []int64 `form:"ids"`
	Roles         []string `form:"roles"`
}

// List pages through hydrated staff rows.
func (s *StaffService) List(ctx context.Context, filter *StaffListFilter, params *paging.Params) ([]StaffItem, *paging.PageInfo, error) {
	if err := params.Normalize(); err != nil {
		return nil, nil, err
	}
	tx := s.store.DB().WithContext(ctx)

	query := staffJoinQuery(tx).Where("staffs.is_active")
	if filter.CompanyID != 0 {
		if _, err := getCompany(tx, filter.CompanyID); err != nil {
			return nil, nil, err
		}
		query = query.Where("staffs.company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(staffs.full_name) LIKE ? OR LOWER(staffs.email) LIKE ? OR LOWER(staffs.staff_code) LIKE ? OR staffs.phone_number LIKE ?",
			like, like, like, "%"+filter.Search+"%")
	}
	if len(filter.DepartmentIDs) > 0 {
		query = query.Where("departments.id IN ?", filter.DepartmentIDs)
	}
	if len(filter.ManagerIDs) > 0 {
		query = query.Where("staffs.manager_id IN ?", filter.ManagerIDs)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("staffs.id IN ?", filter.IDs)
	}
	if len(filter.Roles) > 0 {
		query = query.Where("role_titles.name IN ?", filter.Roles)
	}
	if len(filter.TeamIDs) > 0 {
		query = query.Where(
			"staffs.id IN (?)",
			tx.Model(&model.StaffTeam{}).Select("staff_id").
				Where("team_id IN ? AND is_active", filter.TeamIDs))
	}

	params.SortBy = "staffs." + params.SortBy
	query, info, err := params.Apply(query)
	if err != nil {
		return nil, nil, err
	}

	var rows []staffJoinRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	teams, err := loadTeamMemberships(tx, ids)
	if err != nil {
		return nil, nil, err
	}

	items := make([]StaffItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toItem(teams[rows[i].ID])
	}
	return items, info, nil
}

// EnqueueReconcile schedules a full IAM reconciliation pass.
func (s *StaffService) EnqueueReconcile(ctx context.Context, token string) error {
	return s.tasks.Enqueue(ctx, &queue.Task{Type: queue.TaskReconcile, Token: token})
}
