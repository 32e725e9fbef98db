// Package sqlite provides a SQLite-backed implementation of the
// storage.ProjectStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallyup/tallyup/internal/metrics"
	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
)

// Ensure SQLiteStore implements storage.ProjectStore
var _ storage.ProjectStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.ProjectStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetProject rebuilds the full aggregate from its rows.
func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*models.ExpenseProject, error) {
	return s.getProject(ctx, s.db, projectID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) getProject(ctx context.Context, q querier, projectID string) (*models.ExpenseProject, error) {
	snap := models.ProjectSnapshot{}
	var locked int
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, create_user_id, locked, version, created_at
		 FROM projects WHERE id = ?`,
		projectID,
	).Scan(&snap.ID, &snap.Name, &snap.Description, &snap.CreateUserID, &locked, &snap.Version, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrProjectNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	snap.Locked = locked != 0

	members, err := s.listMembers(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	snap.Members = members

	records, err := s.listRecords(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	snap.Records = records

	return models.RestoreProject(snap), nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, q querier, projectID string) ([]models.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name, weight FROM project_members WHERE project_id = ? ORDER BY name",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get project members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Name, &m.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func (s *SQLiteStore) listRecords(ctx context.Context, q querier, projectID string) ([]*models.ExpenseRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, payer, amount, spend_date, expense_type, remark, version, created_at
		 FROM expense_records WHERE project_id = ?
		 ORDER BY spend_date ASC, created_at ASC, id ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense records: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.ExpenseRecord)
	var records []*models.ExpenseRecord
	for rows.Next() {
		rec := &models.ExpenseRecord{ProjectID: projectID}
		var amount string
		if err := rows.Scan(&rec.ID, &rec.Payer, &amount, &rec.Date,
			&rec.ExpenseType, &rec.Remark, &rec.Version, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense record: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		byID[rec.ID] = rec
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense records: %w", err)
	}

	consumerRows, err := q.QueryContext(ctx,
		"SELECT record_id, member FROM record_consumers WHERE project_id = ? ORDER BY member",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get record consumers: %w", err)
	}
	defer consumerRows.Close()

	for consumerRows.Next() {
		var recordID, member string
		if err := consumerRows.Scan(&recordID, &member); err != nil {
			return nil, fmt.Errorf("failed to scan record consumer: %w", err)
		}
		if rec, ok := byID[recordID]; ok {
			rec.Consumers = append(rec.Consumers, member)
		}
	}
	if err := consumerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record consumers: %w", err)
	}

	return records, nil
}

// SaveProject persists the aggregate according to its pending ChangeSet.
// All statements for one save run inside a single transaction.
func (s *SQLiteStore) SaveProject(ctx context.Context, project *models.ExpenseProject) error {
	changes := project.Changes()
	metrics.ProjectSaves.WithLabelValues(changes.Intent.String()).Inc()

	switch changes.Intent {
	case models.IntentUnchanged:
		if project.ID == "" {
			return fmt.Errorf("cannot save unchanged project without id")
		}
		return nil
	case models.IntentNew:
		return s.insertProject(ctx, project)
	case models.IntentUpdated:
		return s.updateProject(ctx, project, changes)
	default:
		return fmt.Errorf("unsupported persistence intent %v", changes.Intent)
	}
}

func (s *SQLiteStore) insertProject(ctx context.Context, project *models.ExpenseProject) error {
	now := time.Now().Unix()
	project.AssignIdentity(uuid.New().String(), now, newRecordID)
	project.Version = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	locked := 0
	if project.Locked {
		locked = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, create_user_id, locked, version, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		project.ID, project.Name, project.Description, project.CreateUserID, locked, project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	if err := s.insertMembers(ctx, tx, project); err != nil {
		return err
	}
	if err := s.insertRecords(ctx, tx, project); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	project.ResetChanges()
	return nil
}

func (s *SQLiteStore) updateProject(ctx context.Context, project *models.ExpenseProject, changes models.ChangeSet) error {
	if project.ID == "" {
		return fmt.Errorf("cannot update project without id")
	}
	project.AssignIdentity(project.ID, time.Now().Unix(), newRecordID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	locked := 0
	if project.Locked {
		locked = 1
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, locked = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		project.Name, project.Description, locked, project.ID, project.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", project.ID).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", storage.ErrProjectNotFound, project.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check project existence: %w", err)
		}
		metrics.SaveConflicts.Inc()
		return fmt.Errorf("%w: %s", storage.ErrConcurrentModification, project.ID)
	}

	// Changed child collections are replaced wholesale. Simpler than
	// diffing, at the cost of rewriting unrelated rows; the version
	// predicate above guards the whole replacement.
	if changes.MembersDirty {
		if _, err := tx.ExecContext(ctx, "DELETE FROM project_members WHERE project_id = ?", project.ID); err != nil {
			return fmt.Errorf("failed to delete project members: %w", err)
		}
		if err := s.insertMembers(ctx, tx, project); err != nil {
			return err
		}
	}
	if changes.RecordsDirty {
		// record_consumers rows cascade with their records.
		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_records WHERE project_id = ?", project.ID); err != nil {
			return fmt.Errorf("failed to delete expense records: %w", err)
		}
		if err := s.insertRecords(ctx, tx, project); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	project.Version++
	project.ResetChanges()
	return nil
}

func (s *SQLiteStore) insertMembers(ctx context.Context, tx *sql.Tx, project *models.ExpenseProject) error {
	for _, m := range project.Members() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO project_members (project_id, name, weight) VALUES (?, ?, ?)",
			project.ID, m.Name, m.Weight,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member %s: %w", m.Name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) insertRecords(ctx context.Context, tx *sql.Tx, project *models.ExpenseProject) error {
	for _, rec := range project.Records() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expense_records (id, project_id, payer, amount, spend_date, expense_type, remark, version, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, project.ID, rec.Payer, rec.Amount.String(), rec.Date,
			rec.ExpenseType, rec.Remark, rec.Version, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense record: %w", err)
		}
		for _, consumer := range rec.Consumers {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO record_consumers (project_id, record_id, member) VALUES (?, ?, ?)",
				project.ID, rec.ID, consumer,
			)
			if err != nil {
				return fmt.Errorf("failed to insert record consumer: %w", err)
			}
		}
	}
	return nil
}

// DeleteProject removes the project row; members, records, and consumers
// cascade inside the same transaction.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrProjectNotFound, projectID)
	}
	return nil
}

// PageProjects lists fully materialized aggregates matching the filter.
func (s *SQLiteStore) PageProjects(ctx context.Context, filter storage.ProjectFilter) ([]*models.ExpenseProject, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size < 1 {
		size = 20
	}

	where := " WHERE 1=1"
	var args []any
	if filter.OwnerID != "" {
		where += " AND create_user_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Name != "" {
		where += " AND name LIKE ?"
		args = append(args, "%"+filter.Name+"%")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	listArgs := append(append([]any(nil), args...), size, (page-1)*size)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM projects"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		listArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}

	projects := make([]*models.ExpenseProject, 0, len(ids))
	for _, id := range ids {
		project, err := s.getProject(ctx, s.db, id)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}

	return projects, total, nil
}

func newRecordID() string {
	return uuid.New().String()
}
