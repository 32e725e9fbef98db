// Package service implements the application commands around the
// ExpenseProject aggregate. Every command carries the operator id; the
// service verifies it matches the project owner before touching the
// aggregate (authentication itself happens upstream).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/internal/calculator"
	"github.com/tallyup/tallyup/internal/metrics"
	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
)

// ErrPermissionDenied is returned when the operator is not the project owner.
var ErrPermissionDenied = errors.New("operator is not the project owner")

// ProjectService executes project commands and queries against a store.
type ProjectService struct {
	store storage.ProjectStore
}

// NewProjectService creates a ProjectService with the given storage backend.
func NewProjectService(store storage.ProjectStore) *ProjectService {
	return &ProjectService{store: store}
}

// MemberInput names a member to add, with an optional weight (0 means 1).
type MemberInput struct {
	Name   string
	Weight int64
}

// CreateProjectCmd creates a new project, optionally with initial members.
type CreateProjectCmd struct {
	OperatorID  string
	Name        string
	Description string
	Members     []MemberInput
}

// CreateProject creates and persists a new project owned by the operator.
func (s *ProjectService) CreateProject(ctx context.Context, cmd CreateProjectCmd) (*models.ExpenseProject, error) {
	slog.Info("CreateProject command received",
		"operator_id", cmd.OperatorID,
		"name", cmd.Name,
		"members_count", len(cmd.Members),
	)

	project, err := models.NewExpenseProject(cmd.Name, cmd.Description, cmd.OperatorID)
	if err != nil {
		return nil, err
	}
	for _, m := range cmd.Members {
		if err := project.AddMember(m.Name, normalizeWeight(m.Weight)); err != nil {
			return nil, err
		}
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("CreateProject failed", "error", err)
		return nil, err
	}

	slog.Info("Project created", "project_id", project.ID)
	return project, nil
}

// GetProject loads a project for its owner.
func (s *ProjectService) GetProject(ctx context.Context, projectID, operatorID string) (*models.ExpenseProject, error) {
	return s.loadOwned(ctx, projectID, operatorID)
}

// ListProjectsQry pages the operator's projects, optionally filtered by a
// name substring.
type ListProjectsQry struct {
	OperatorID string
	Name       string
	Page       int
	Size       int
}

// ListProjects returns one page of the operator's projects and the total count.
func (s *ProjectService) ListProjects(ctx context.Context, qry ListProjectsQry) ([]*models.ExpenseProject, int64, error) {
	return s.store.PageProjects(ctx, storage.ProjectFilter{
		OwnerID: qry.OperatorID,
		Name:    qry.Name,
		Page:    qry.Page,
		Size:    qry.Size,
	})
}

// DeleteProject removes the project and all of its records.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, operatorID string) error {
	slog.Info("DeleteProject command received", "project_id", projectID, "operator_id", operatorID)

	if _, err := s.loadOwned(ctx, projectID, operatorID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		slog.Error("DeleteProject failed", "project_id", projectID, "error", err)
		return err
	}

	slog.Info("Project deleted", "project_id", projectID)
	return nil
}

// AddMembersCmd appends members to a project. The whole batch is applied
// atomically: one bad name rejects the command without saving.
type AddMembersCmd struct {
	ProjectID  string
	OperatorID string
	Members    []MemberInput
}

// AddMembers adds the given members and persists the project.
func (s *ProjectService) AddMembers(ctx context.Context, cmd AddMembersCmd) (*models.ExpenseProject, error) {
	slog.Info("AddMembers command received",
		"project_id", cmd.ProjectID,
		"members_count", len(cmd.Members),
	)

	if len(cmd.Members) == 0 {
		return nil, &models.ValidationError{Field: "members", Reason: "must not be empty"}
	}
	project, err := s.loadOwned(ctx, cmd.ProjectID, cmd.OperatorID)
	if err != nil {
		return nil, err
	}
	for _, m := range cmd.Members {
		if err := project.AddMember(m.Name, normalizeWeight(m.Weight)); err != nil {
			return nil, err
		}
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("AddMembers failed", "project_id", cmd.ProjectID, "error", err)
		return nil, err
	}
	return project, nil
}

// RecordCmd adds or updates an expense record. RecordID is empty on add.
type RecordCmd struct {
	ProjectID   string
	OperatorID  string
	RecordID    string
	Payer       string
	Amount      decimal.Decimal
	Date        int64
	ExpenseType string
	Remark      string
	Consumers   []string
}

// AddRecord appends an expense record and persists the project.
func (s *ProjectService) AddRecord(ctx context.Context, cmd RecordCmd) (*models.ExpenseProject, error) {
	slog.Info("AddRecord command received",
		"project_id", cmd.ProjectID,
		"payer", cmd.Payer,
		"amount", cmd.Amount.String(),
		"consumers_count", len(cmd.Consumers),
	)

	project, err := s.loadOwned(ctx, cmd.ProjectID, cmd.OperatorID)
	if err != nil {
		return nil, err
	}
	if err := project.AddExpenseRecord(cmd.toRecord()); err != nil {
		return nil, err
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("AddRecord failed", "project_id", cmd.ProjectID, "error", err)
		return nil, err
	}
	return project, nil
}

// UpdateRecord replaces an existing expense record and persists the project.
func (s *ProjectService) UpdateRecord(ctx context.Context, cmd RecordCmd) (*models.ExpenseProject, error) {
	slog.Info("UpdateRecord command received",
		"project_id", cmd.ProjectID,
		"record_id", cmd.RecordID,
	)

	project, err := s.loadOwned(ctx, cmd.ProjectID, cmd.OperatorID)
	if err != nil {
		return nil, err
	}
	if err := project.UpdateExpenseRecord(cmd.toRecord()); err != nil {
		return nil, err
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("UpdateRecord failed", "project_id", cmd.ProjectID, "error", err)
		return nil, err
	}
	return project, nil
}

// DeleteRecord removes an expense record and persists the project.
func (s *ProjectService) DeleteRecord(ctx context.Context, projectID, recordID, operatorID string) (*models.ExpenseProject, error) {
	slog.Info("DeleteRecord command received", "project_id", projectID, "record_id", recordID)

	project, err := s.loadOwned(ctx, projectID, operatorID)
	if err != nil {
		return nil, err
	}
	if err := project.RemoveRecord(recordID); err != nil {
		return nil, err
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("DeleteRecord failed", "project_id", projectID, "error", err)
		return nil, err
	}
	return project, nil
}

// RenameProjectCmd updates a project's name and description.
type RenameProjectCmd struct {
	ProjectID   string
	OperatorID  string
	Name        string
	Description string
}

// RenameProject updates the project name and description and persists it.
func (s *ProjectService) RenameProject(ctx context.Context, cmd RenameProjectCmd) (*models.ExpenseProject, error) {
	slog.Info("RenameProject command received", "project_id", cmd.ProjectID, "name", cmd.Name)

	project, err := s.loadOwned(ctx, cmd.ProjectID, cmd.OperatorID)
	if err != nil {
		return nil, err
	}
	if err := project.Rename(cmd.Name, cmd.Description); err != nil {
		return nil, err
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("RenameProject failed", "project_id", cmd.ProjectID, "error", err)
		return nil, err
	}
	return project, nil
}

// SetLocked freezes or unfreezes a project.
func (s *ProjectService) SetLocked(ctx context.Context, projectID, operatorID string, locked bool) (*models.ExpenseProject, error) {
	slog.Info("SetLocked command received", "project_id", projectID, "locked", locked)

	project, err := s.loadOwned(ctx, projectID, operatorID)
	if err != nil {
		return nil, err
	}
	project.SetLocked(locked)

	if err := s.store.SaveProject(ctx, project); err != nil {
		slog.Error("SetLocked failed", "project_id", projectID, "error", err)
		return nil, err
	}
	return project, nil
}

// Sharing computes the settlement ledger for a project.
func (s *ProjectService) Sharing(ctx context.Context, projectID, operatorID string) (*calculator.ProjectSharingFee, error) {
	project, err := s.loadOwned(ctx, projectID, operatorID)
	if err != nil {
		return nil, err
	}

	metrics.SharingCalculations.Inc()
	fee := calculator.ProjectSharing(project.Members(), project.Records())

	slog.Info("Sharing computed",
		"project_id", projectID,
		"members_count", project.TotalMembers(),
		"total_expense", project.TotalExpense().String(),
	)
	return fee, nil
}

func (s *ProjectService) loadOwned(ctx context.Context, projectID, operatorID string) (*models.ExpenseProject, error) {
	if projectID == "" {
		return nil, &models.ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if operatorID == "" {
		return nil, &models.ValidationError{Field: "operatorId", Reason: "must not be empty"}
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreateUserID != operatorID {
		return nil, fmt.Errorf("%w: project %s", ErrPermissionDenied, projectID)
	}
	return project, nil
}

func (c *RecordCmd) toRecord() *models.ExpenseRecord {
	return &models.ExpenseRecord{
		ID:          c.RecordID,
		ProjectID:   c.ProjectID,
		Payer:       c.Payer,
		Amount:      c.Amount,
		Date:        c.Date,
		ExpenseType: c.ExpenseType,
		Remark:      c.Remark,
		Consumers:   append([]string(nil), c.Consumers...),
	}
}

func normalizeWeight(w int64) int64 {
	if w == 0 {
		return 1
	}
	return w
}
