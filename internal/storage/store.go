// Package storage provides abstractions for persistent aggregate storage.
package storage

import (
	"context"
	"errors"

	"github.com/tallyup/tallyup/internal/models"
)

// Storage error kinds.
var (
	// ErrProjectNotFound is returned when operating on a project id absent
	// from storage.
	ErrProjectNotFound = errors.New("project not found")

	// ErrConcurrentModification is returned when a save's version
	// predicate matches zero rows: another writer updated the project
	// since it was loaded. The caller must reload and retry explicitly;
	// the gateway never retries on its own.
	ErrConcurrentModification = errors.New("project was modified concurrently")
)

// ProjectFilter selects projects for paged listing. OwnerID and Name
// (substring match) are optional; Page is 1-based.
type ProjectFilter struct {
	OwnerID string
	Name    string
	Page    int
	Size    int
}

// ProjectStore is the concurrency-safe gateway for ExpenseProject
// aggregates. This abstraction allows swapping storage backends without
// changing the service layer.
type ProjectStore interface {
	// GetProject rebuilds the aggregate (members and records fully
	// materialized) or returns ErrProjectNotFound.
	GetProject(ctx context.Context, projectID string) (*models.ExpenseProject, error)

	// SaveProject dispatches on the aggregate's ChangeSet:
	//
	//   - IntentNew: inserts the project with version 0 plus all children,
	//     assigning generated ids back onto the aggregate.
	//   - IntentUpdated: performs a conditional update (id + version) that
	//     increments the version, then replaces the dirty child
	//     collections inside the same transaction. A version mismatch
	//     fails with ErrConcurrentModification.
	//   - IntentUnchanged: no-op.
	//
	// On success the aggregate's ChangeSet is reset.
	SaveProject(ctx context.Context, project *models.ExpenseProject) error

	// DeleteProject removes the project and all its members and records
	// in a single transaction.
	DeleteProject(ctx context.Context, projectID string) error

	// PageProjects returns one page of fully materialized aggregates
	// matching the filter, plus the total match count.
	PageProjects(ctx context.Context, filter ProjectFilter) ([]*models.ExpenseProject, int64, error)

	// Close releases any resources held by the store.
	Close() error
}
