package bulkimport

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/metrics"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/orgtree"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/objstore"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

// ArtifactStore is where annotated error files go; satisfied by
// objstore.Client.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte, fileName, contentType string) (*objstore.ObjectInfo, error)
}

var fieldValidator = validator.New()

// TaskEnqueuer hands sync work to the identity worker; satisfied by
// queue.TaskQueue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) error
}

type Importer struct {
	store     *postgres.Store
	artifacts ArtifactStore
	tasks     TaskEnqueuer
	logger    *zap.Logger
}

func NewImporter(store *postgres.Store, artifacts ArtifactStore, tasks TaskEnqueuer, logger *zap.Logger) *Importer {
	return &Importer{store: store, artifacts: artifacts, tasks: tasks, logger: logger}
}

// Result reports one import attempt. A file is loaded whole or not at all:
// either Succeeded == Total and every row was inserted, or Succeeded is zero,
// nothing was written, and the annotated file in ErrorFile marks the Failed
// rows.
type Result struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	ErrorFile *objstore.ObjectInfo `json:"error_file,omitempty"`
}

// lookups is the database state the validation passes check rows against,
// loaded once per import.
type lookups struct {
	emails       map[string]bool
	staffCodes   map[string]bool
	departments  map[int64]*model.Department
	roleTitles   map[int64]map[string]*model.RoleTitle
	teams        map[string]*model.Team
	staffByEmail map[string]int64
}

// Import runs the whole pipeline. A clean file is inserted in one
// transaction; a file with any flagged row writes nothing and comes back as
// an annotated error artifact instead.
func (im *Importer) Import(ctx context.Context, token string, companyID int64, fileName string, data []byte) (*Result, error) {
	rows, err := ParseFile(fileName, data)
	if err != nil {
		return nil, err
	}

	var company model.Company
	if err := im.store.DB().WithContext(ctx).First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCompanyNotFound
		}
		return nil, err
	}

	look, err := im.loadLookups(ctx, companyID)
	if err != nil {
		return nil, err
	}

	validateRows(rows, look)

	failed := 0
	for i := range rows {
		if !rows[i].ok() {
			failed++
		}
	}

	result := &Result{Total: len(rows), Failed: failed}
	if failed > 0 {
		metrics.ImportRowsTotal.WithLabelValues("failed").Add(float64(failed))
		info, err := im.uploadErrorArtifact(ctx, fileName, rows)
		if err != nil {
			im.logger.Error("import error artifact upload failed", zap.Error(err))
		} else {
			result.ErrorFile = info
		}
		im.logger.Info("import rejected",
			zap.String("file", fileName),
			zap.Int64("company_id", companyID),
			zap.Int("total", result.Total),
			zap.Int("failed", result.Failed))
		return result, nil
	}

	salesSync, err := im.insert(ctx, companyID, rows, look)
	if err != nil {
		return nil, err
	}
	result.Succeeded = len(rows)
	metrics.ImportRowsTotal.WithLabelValues("ok").Add(float64(result.Succeeded))

	for _, task := range salesSync {
		task.Token = token
		if err := im.tasks.Enqueue(ctx, task); err != nil {
			im.logger.Error("enqueue identity sync failed",
				zap.String("email", task.Email), zap.Error(err))
		}
	}

	im.logger.Info("import finished",
		zap.String("file", fileName),
		zap.Int64("company_id", companyID),
		zap.Int("total", result.Total))
	return result, nil
}

func (im *Importer) loadLookups(ctx context.Context, companyID int64) (*lookups, error) {
	tx := im.store.DB().WithContext(ctx)
	look := &lookups{
		emails:       map[string]bool{},
		staffCodes:   map[string]bool{},
		departments:  map[int64]*model.Department{},
		roleTitles:   map[int64]map[string]*model.RoleTitle{},
		teams:        map[string]*model.Team{},
		staffByEmail: map[string]int64{},
	}

	var staffs []model.Staff
	if err := tx.Select("id, email, staff_code, company_id, is_active").Find(&staffs).Error; err != nil {
		return nil, err
	}
	for i := range staffs {
		email := strings.ToLower(staffs[i].Email)
		look.emails[email] = true
		look.staffCodes[staffs[i].StaffCode] = true
		if staffs[i].IsActive && staffs[i].CompanyID == companyID {
			look.staffByEmail[email] = staffs[i].ID
		}
	}

	var assocs []model.CompanyStaff
	if err := tx.Select("email").Find(&assocs).Error; err != nil {
		return nil, err
	}
	for i := range assocs {
		look.emails[strings.ToLower(assocs[i].Email)] = true
	}

	var depts []model.Department
	if err := tx.Where("company_id = ?", companyID).Find(&depts).Error; err != nil {
		return nil, err
	}
	deptIDs := make([]int64, 0, len(depts))
	for i := range depts {
		look.departments[depts[i].ID] = &depts[i]
		deptIDs = append(deptIDs, depts[i].ID)
	}

	if len(deptIDs) > 0 {
		var titles []model.RoleTitle
		if err := tx.Where("department_id IN ? AND is_active", deptIDs).Find(&titles).Error; err != nil {
			return nil, err
		}
		for i := range titles {
			deptID := *titles[i].DepartmentID
			if look.roleTitles[deptID] == nil {
				look.roleTitles[deptID] = map[string]*model.RoleTitle{}
			}
			look.roleTitles[deptID][strings.ToLower(titles[i].Name)] = &titles[i]
		}
	}

	var teams []model.Team
	if err := tx.Where("company_id = ? AND is_active", companyID).Find(&teams).Error; err != nil {
		return nil, err
	}
	for i := range teams {
		look.teams[strings.ToLower(teams[i].Name)] = &teams[i]
	}
	return look, nil
}

// validateRows runs the passes in order over every row. The first failure
// wins per row, but every pass still scans the whole file so the duplicate
// sets and the manager adjacency see all rows.
func validateRows(rows []Row, look *lookups) {
	seenEmail := map[string]int{}
	seenCode := map[string]int{}

	for i := range rows {
		row := &rows[i]

		if row.FullName == "" {
			row.fail("full name must not be empty")
		}

		if row.StaffCode == "" {
			row.fail("staff code must not be empty")
		} else if first, dup := seenCode[row.StaffCode]; dup {
			row.fail(fmt.Sprintf("staff code duplicates line %d", first))
		} else {
			seenCode[row.StaffCode] = row.Line
			if look.staffCodes[row.StaffCode] {
				row.fail("staff code already exists")
			}
		}

		email := strings.ToLower(row.Email)
		if row.Email == "" {
			row.fail("email must not be empty")
		} else if fieldValidator.Var(row.Email, "email") != nil {
			row.fail(fmt.Sprintf("email %q is not a valid address", row.Email))
		} else if first, dup := seenEmail[email]; dup {
			row.fail(fmt.Sprintf("email duplicates line %d", first))
		} else {
			seenEmail[email] = row.Line
			if look.emails[email] {
				row.fail("email already exists")
			}
		}

		if !model.ValidPhone(row.PhoneNumber) {
			row.fail(fmt.Sprintf("phone number %q is not valid", row.PhoneNumber))
		}

		validateDepartment(row, look)

		for _, name := range teamNames(row.TeamName) {
			if look.teams[strings.ToLower(name)] == nil {
				row.fail(fmt.Sprintf("team %q not found", name))
			}
		}
	}

	validateManagers(rows, look)
}

func validateDepartment(row *Row, look *lookups) {
	if row.DepartmentID == "" {
		row.fail("department id must not be empty")
		return
	}
	deptID, err := strconv.ParseInt(row.DepartmentID, 10, 64)
	if err != nil {
		row.fail(fmt.Sprintf("department id %q is not a number", row.DepartmentID))
		return
	}
	dept := look.departments[deptID]
	if dept == nil || !dept.IsActive {
		row.fail(fmt.Sprintf("department %d not found", deptID))
		return
	}
	if row.DepartmentName != "" && !strings.EqualFold(dept.Name, row.DepartmentName) {
		row.fail(fmt.Sprintf("department %d is named %q, not %q", deptID, dept.Name, row.DepartmentName))
		return
	}
	if row.RoleTitleName == "" {
		row.fail("role title must not be empty")
		return
	}
	if look.roleTitles[deptID][strings.ToLower(row.RoleTitleName)] == nil {
		row.fail(fmt.Sprintf("role title %q not found in department %d", row.RoleTitleName, deptID))
	}
}

// validateManagers resolves each line-manager email against the file and the
// company's staff, then rejects rows whose manager is one of their own
// in-file subordinates. The walk excludes the current row so its own manager
// edge cannot feed back into the result.
func validateManagers(rows []Row, look *lookups) {
	emails := make([]string, len(rows))
	managers := make([]*string, len(rows))
	fileEmails := make(map[string]bool, len(rows))
	for i := range rows {
		emails[i] = strings.ToLower(rows[i].Email)
		fileEmails[emails[i]] = true
		if m := strings.ToLower(rows[i].ManagerEmail); m != "" {
			managers[i] = &m
		}
	}

	others := make([]int, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.ManagerEmail == "" {
			continue
		}
		managerEmail := strings.ToLower(row.ManagerEmail)
		if managerEmail == emails[i] {
			row.fail("staff cannot manage themselves")
			continue
		}
		if fieldValidator.Var(row.ManagerEmail, "email") != nil {
			row.fail(fmt.Sprintf("line manager email %q is not a valid address", row.ManagerEmail))
			continue
		}
		if _, inDB := look.staffByEmail[managerEmail]; !inDB && !fileEmails[managerEmail] {
			row.fail(fmt.Sprintf("line manager %q not found", row.ManagerEmail))
			continue
		}

		others = others[:0]
		for j := range rows {
			if j != i {
				others = append(others, j)
			}
		}
		subordinates := orgtree.DescendantIDs(others,
			func(j int) string { return emails[j] },
			func(j int) *string { return managers[j] },
			emails[i])
		for _, sub := range subordinates {
			if sub == managerEmail {
				row.fail(fmt.Sprintf("line manager %q is a subordinate of this staff", row.ManagerEmail))
				break
			}
		}
	}
}

// teamNames splits the comma-separated team cell; blanks between commas are
// dropped.
func teamNames(cell string) []string {
	var names []string
	for _, part := range strings.Split(cell, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// insert writes every row in five steps inside one transaction: staff first,
// then company associations, manager links once every id exists, department
// attachments and team memberships. Returns the sync tasks for rows that
// landed on a sales role title.
func (im *Importer) insert(ctx context.Context, companyID int64, rows []Row, look *lookups) ([]*queue.Task, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var tasks []*queue.Task
	err := im.store.Transaction(ctx, func(tx *gorm.DB) error {
		staffIDs := make(map[string]int64, len(rows))

		for i := range rows {
			row := &rows[i]
			staff := model.Staff{
				FullName:     row.FullName,
				StaffCode:    row.StaffCode,
				Email:        row.Email,
				PhoneNumber:  row.PhoneNumber,
				CompanyID:    companyID,
				ContractType: model.ContractOfficial,
				IsActive:     true,
			}
			if err := tx.Create(&staff).Error; err != nil {
				return err
			}
			staffIDs[strings.ToLower(row.Email)] = staff.ID
		}

		for i := range rows {
			row := &rows[i]
			assoc := model.CompanyStaff{
				CompanyID: companyID,
				StaffID:   staffIDs[strings.ToLower(row.Email)],
				Email:     row.Email,
				IsActive:  true,
			}
			if err := tx.Create(&assoc).Error; err != nil {
				return err
			}
		}

		for i := range rows {
			row := &rows[i]
			if row.ManagerEmail == "" {
				continue
			}
			managerEmail := strings.ToLower(row.ManagerEmail)
			managerID, inFile := staffIDs[managerEmail]
			if !inFile {
				managerID = look.staffByEmail[managerEmail]
			}
			err := tx.Model(&model.Staff{}).
				Where("id = ?", staffIDs[strings.ToLower(row.Email)]).
				Update("manager_id", managerID).Error
			if err != nil {
				return err
			}
		}

		for i := range rows {
			row := &rows[i]
			deptID, _ := strconv.ParseInt(row.DepartmentID, 10, 64)
			title := look.roleTitles[deptID][strings.ToLower(row.RoleTitleName)]
			attachment := model.DepartmentStaff{
				DepartmentID: deptID,
				StaffID:      staffIDs[strings.ToLower(row.Email)],
				RoleTitleID:  &title.ID,
				IsActive:     true,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
			if model.IsSalesRole(title.Name) {
				tasks = append(tasks, &queue.Task{
					Type:        queue.TaskStaffSync,
					FullName:    row.FullName,
					Email:       row.Email,
					PhoneNumber: row.PhoneNumber,
					RoleName:    title.Name,
				})
			}
		}

		for i := range rows {
			row := &rows[i]
			for _, name := range teamNames(row.TeamName) {
				membership := model.StaffTeam{
					TeamID:   look.teams[strings.ToLower(name)].ID,
					StaffID:  staffIDs[strings.ToLower(row.Email)],
					IsActive: true,
				}
				if err := tx.Create(&membership).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// uploadErrorArtifact writes the whole file back out as a spreadsheet with an
// extra Errors column marking the failing rows, and stores it for the caller
// to download.
func (im *Importer) uploadErrorArtifact(ctx context.Context, fileName string, rows []Row) (*objstore.ObjectInfo, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := append(append([]string{}, templateHeader...), "Errors")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i := range rows {
		row := &rows[i]
		record := []string{
			row.FullName, row.StaffCode, row.Email, row.PhoneNumber,
			row.DepartmentID, row.DepartmentName, row.RoleTitleName,
			row.TeamName, row.ManagerEmail,
			row.Error,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	artifactName := strings.TrimSuffix(fileName, filepath.Ext(fileName)) + "_errors.xlsx"
	return im.artifacts.Put(ctx, buf.Bytes(), artifactName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}
