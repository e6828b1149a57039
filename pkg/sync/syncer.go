// Package sync runs identity-provider synchronization off the request path.
// Primary database writes never wait on IAM; a failed sync is logged and the
// directory and IAM converge on the next reconcile.
package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/iam"
	"github.com/staffdir/staffdir/pkg/metrics"
	"github.com/staffdir/staffdir/pkg/model"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

type Syncer struct {
	store  *postgres.Store
	iam    *iam.Client
	logger *zap.Logger
}

func NewSyncer(store *postgres.Store, iamClient *iam.Client, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, iam: iamClient, logger: logger}
}

// HandleTask is the queue consumer entrypoint.
func (s *Syncer) HandleTask(ctx context.Context, task *queue.Task) error {
	var err error
	switch task.Type {
	case queue.TaskStaffSync:
		err = s.SyncStaff(ctx, task.Token, iam.UserProfile{
			FullName:    task.FullName,
			Email:       task.Email,
			PhoneNumber: task.PhoneNumber,
		}, task.RoleName)
	case queue.TaskReconcile:
		err = s.Reconcile(ctx, task.Token)
	default:
		err = fmt.Errorf("unknown task type %q", task.Type)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Error("identity sync task failed",
			zap.String("type", task.Type),
			zap.String("email", task.Email),
			zap.Error(err))
	}
	metrics.SyncTasksTotal.WithLabelValues(task.Type, outcome).Inc()
	return err
}

// SyncStaff makes sure one staff exists in IAM and holds exactly the role
// matching roleName. Creation falls back to a lookup: the user may already
// exist from an earlier partial sync.
func (s *Syncer) SyncStaff(ctx context.Context, token string, profile iam.UserProfile, roleName string) error {
	roleID := s.iam.RoleIDFor(roleName)
	if roleID == 0 {
		return nil
	}

	userID, err := s.iam.CreateUser(ctx, token, profile)
	if err != nil {
		userID = s.iam.FindUserIDByEmail(ctx, token, profile.Email)
		if userID == "" {
			return fmt.Errorf("sync staff %s: %w", profile.Email, err)
		}
	}
	return s.iam.SetRoles(ctx, token, userID, []int{roleID})
}

type salesStaffRow struct {
	FullName    string
	Email       string
	PhoneNumber string
	RoleName    string
}

// Reconcile walks every active staff holding an active sales role title and
// repairs IAM: missing users are created, mismatched role sets are replaced.
func (s *Syncer) Reconcile(ctx context.Context, token string) error {
	var rows []salesStaffRow
	err := s.store.DB().WithContext(ctx).
		Model(&model.Staff{}).
		Select("staffs.full_name, staffs.email, staffs.phone_number, role_titles.name AS role_name").
		Joins("JOIN department_staffs ON department_staffs.staff_id = staffs.id AND department_staffs.is_active").
		Joins("JOIN role_titles ON role_titles.id = department_staffs.role_title_id").
		Where("staffs.is_active").
		Where("role_titles.name IN ?", model.SalesRoleNames()).
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("reconcile: load sales staff: %w", err)
	}

	var failed int
	for _, row := range rows {
		userID := s.iam.FindUserIDByEmail(ctx, token, row.Email)
		if userID == "" {
			if err := s.SyncStaff(ctx, token, iam.UserProfile{
				FullName:    row.FullName,
				Email:       row.Email,
				PhoneNumber: row.PhoneNumber,
			}, row.RoleName); err != nil {
				failed++
				s.logger.Warn("reconcile: create failed", zap.String("email", row.Email), zap.Error(err))
			}
			continue
		}

		wantRole := s.iam.RoleIDFor(row.RoleName)
		if wantRole == 0 {
			continue
		}
		if hasRole(s.iam.GetRoles(ctx, token, userID), wantRole) {
			continue
		}
		if err := s.iam.SetRoles(ctx, token, userID, []int{wantRole}); err != nil {
			failed++
			s.logger.Warn("reconcile: role update failed", zap.String("email", row.Email), zap.Error(err))
		}
	}

	s.logger.Info("reconcile finished", zap.Int("staff", len(rows)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("reconcile: %d of %d staff failed", failed, len(rows))
	}
	return nil
}

func hasRole(roleIDs []int, want int) bool {
	for _, id := range roleIDs {
		if id == want {
			return true
		}
	}
	return false
}
