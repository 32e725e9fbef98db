package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
	"github.com/tallyup/tallyup/internal/storage/sqlite"
)

func newTestService(t *testing.T) *ProjectService {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "tallyup.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewProjectService(store)
}

func createTripProject(t *testing.T, svc *ProjectService, owner string) *models.ExpenseProject {
	t.Helper()
	project, err := svc.CreateProject(context.Background(), CreateProjectCmd{
		OperatorID: owner,
		Name:       "Trip",
		Members: []MemberInput{
			{Name: "Alice"},
			{Name: "Bob"},
			{Name: "Carol"},
		},
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	return project
}

func TestCreateProject(t *testing.T) {
	svc := newTestService(t)

	project := createTripProject(t, svc, "user-1")
	if project.ID == "" {
		t.Error("project id not assigned")
	}
	if project.TotalMembers() != 3 {
		t.Errorf("member count = %d, want 3", project.TotalMembers())
	}

	t.Run("default weight is one", func(t *testing.T) {
		for _, m := range project.Members() {
			if m.Weight != 1 {
				t.Errorf("member %s weight = %d, want 1", m.Name, m.Weight)
			}
		}
	})

	t.Run("duplicate member rejected", func(t *testing.T) {
		_, err := svc.CreateProject(context.Background(), CreateProjectCmd{
			OperatorID: "user-1",
			Name:       "Dinner",
			Members:    []MemberInput{{Name: "Alice"}, {Name: "Alice"}},
		})
		if !errors.Is(err, models.ErrDuplicateMember) {
			t.Errorf("expected ErrDuplicateMember, got %v", err)
		}
	})
}

func TestOwnershipEnforced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	if _, err := svc.GetProject(ctx, project.ID, "user-2"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("GetProject by non-owner: got %v, want ErrPermissionDenied", err)
	}
	if err := svc.DeleteProject(ctx, project.ID, "user-2"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("DeleteProject by non-owner: got %v, want ErrPermissionDenied", err)
	}
	_, err := svc.AddMembers(ctx, AddMembersCmd{
		ProjectID:  project.ID,
		OperatorID: "user-2",
		Members:    []MemberInput{{Name: "Eve"}},
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("AddMembers by non-owner: got %v, want ErrPermissionDenied", err)
	}

	// The owner still gets through.
	if _, err := svc.GetProject(ctx, project.ID, "user-1"); err != nil {
		t.Errorf("GetProject by owner failed: %v", err)
	}
}

func TestRecordLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	project, err := svc.AddRecord(ctx, RecordCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Payer:      "Alice",
		Amount:     decimal.RequireFromString("90.00"),
		Date:       1700000000,
		Consumers:  []string{"Alice", "Bob", "Carol"},
	})
	if err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	records := project.Records()
	if len(records) != 1 || records[0].ID == "" {
		t.Fatalf("record not persisted: %+v", records)
	}
	recordID := records[0].ID

	t.Run("unknown payer rejected", func(t *testing.T) {
		_, err := svc.AddRecord(ctx, RecordCmd{
			ProjectID:  project.ID,
			OperatorID: "user-1",
			Payer:      "Eve",
			Amount:     decimal.RequireFromString("10.00"),
			Consumers:  []string{"Alice"},
		})
		if !errors.Is(err, models.ErrMemberNotInProject) {
			t.Errorf("expected ErrMemberNotInProject, got %v", err)
		}
	})

	t.Run("update replaces the record", func(t *testing.T) {
		updated, err := svc.UpdateRecord(ctx, RecordCmd{
			ProjectID:  project.ID,
			OperatorID: "user-1",
			RecordID:   recordID,
			Payer:      "Bob",
			Amount:     decimal.RequireFromString("45.00"),
			Date:       1700000000,
			Consumers:  []string{"Alice", "Bob"},
		})
		if err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}
		rec := updated.Records()[0]
		if rec.Payer != "Bob" || !rec.Amount.Equal(decimal.RequireFromString("45.00")) {
			t.Errorf("record not updated: %+v", rec)
		}
	})

	t.Run("update of unknown record", func(t *testing.T) {
		_, err := svc.UpdateRecord(ctx, RecordCmd{
			ProjectID:  project.ID,
			OperatorID: "user-1",
			RecordID:   "missing",
			Payer:      "Alice",
			Amount:     decimal.RequireFromString("1.00"),
			Consumers:  []string{"Alice"},
		})
		if !errors.Is(err, models.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("delete removes the record", func(t *testing.T) {
		deleted, err := svc.DeleteRecord(ctx, project.ID, recordID, "user-1")
		if err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}
		if len(deleted.Records()) != 0 {
			t.Errorf("record still present after delete")
		}
	})
}

func TestAddMembersValidatesBatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	_, err := svc.AddMembers(ctx, AddMembersCmd{ProjectID: project.ID, OperatorID: "user-1"})
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError for empty batch, got %v", err)
	}

	// One bad name fails the whole batch without a partial save.
	_, err = svc.AddMembers(ctx, AddMembersCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Members:    []MemberInput{{Name: "Dave"}, {Name: "Alice"}},
	})
	if !errors.Is(err, models.ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
	reloaded, err := svc.GetProject(ctx, project.ID, "user-1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if reloaded.HasMember("Dave") {
		t.Error("rejected batch was partially persisted")
	}

	updated, err := svc.AddMembers(ctx, AddMembersCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Members:    []MemberInput{{Name: "Dave"}, {Name: "Erin", Weight: 2}},
	})
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if updated.TotalMembers() != 5 {
		t.Errorf("member count = %d, want 5", updated.TotalMembers())
	}
}

func TestRenameProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	renamed, err := svc.RenameProject(ctx, RenameProjectCmd{
		ProjectID:   project.ID,
		OperatorID:  "user-1",
		Name:        "Trip 2026",
		Description: "spring trip",
	})
	if err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if renamed.Name != "Trip 2026" || renamed.Description != "spring trip" {
		t.Errorf("rename not applied: %s / %s", renamed.Name, renamed.Description)
	}

	_, err = svc.RenameProject(ctx, RenameProjectCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Name:       "",
	})
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError for empty name, got %v", err)
	}

	reloaded, err := svc.GetProject(ctx, project.ID, "user-1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if reloaded.Name != "Trip 2026" {
		t.Errorf("persisted name = %s, want Trip 2026", reloaded.Name)
	}
}

func TestLockFreezesProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	locked, err := svc.SetLocked(ctx, project.ID, "user-1", true)
	if err != nil {
		t.Fatalf("SetLocked failed: %v", err)
	}
	if !locked.Locked {
		t.Fatal("project not locked")
	}

	_, err = svc.AddRecord(ctx, RecordCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Payer:      "Alice",
		Amount:     decimal.RequireFromString("10.00"),
		Consumers:  []string{"Bob"},
	})
	if !errors.Is(err, models.ErrProjectLocked) {
		t.Errorf("expected ErrProjectLocked, got %v", err)
	}

	unlocked, err := svc.SetLocked(ctx, project.ID, "user-1", false)
	if err != nil {
		t.Fatalf("SetLocked failed: %v", err)
	}
	if unlocked.Locked {
		t.Fatal("project still locked")
	}
	if _, err := svc.AddRecord(ctx, RecordCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Payer:      "Alice",
		Amount:     decimal.RequireFromString("10.00"),
		Consumers:  []string{"Bob"},
	}); err != nil {
		t.Errorf("AddRecord after unlock failed: %v", err)
	}
}

func TestListProjects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createTripProject(t, svc, "user-1")
	createTripProject(t, svc, "user-1")
	createTripProject(t, svc, "user-2")

	projects, total, err := svc.ListProjects(ctx, ListProjectsQry{OperatorID: "user-1", Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if total != 2 || len(projects) != 2 {
		t.Errorf("got %d projects (total %d), want 2", len(projects), total)
	}

	_, total, err = svc.ListProjects(ctx, ListProjectsQry{OperatorID: "user-1", Name: "nope", Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0 for unmatched name filter", total)
	}
}

func TestSharingEndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTripProject(t, svc, "user-1")

	if _, err := svc.AddRecord(ctx, RecordCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Payer:      "Alice",
		Amount:     decimal.RequireFromString("90.00"),
		Date:       1700000000,
		Consumers:  []string{"Alice", "Bob", "Carol"},
	}); err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if _, err := svc.AddRecord(ctx, RecordCmd{
		ProjectID:  project.ID,
		OperatorID: "user-1",
		Payer:      "Bob",
		Amount:     decimal.RequireFromString("30.00"),
		Date:       1700086400,
		Consumers:  []string{"Alice", "Bob"},
	}); err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}

	fee, err := svc.Sharing(ctx, project.ID, "user-1")
	if err != nil {
		t.Fatalf("Sharing failed: %v", err)
	}

	wantNet := map[string]string{"Alice": "45", "Bob": "-15", "Carol": "-30"}
	for name, want := range wantNet {
		mf := fee.MemberFee(name)
		if mf == nil {
			t.Fatalf("member %s missing from settlement", name)
		}
		if !mf.NetBalance().Equal(decimal.RequireFromString(want)) {
			t.Errorf("%s net = %s, want %s", name, mf.NetBalance(), want)
		}
	}

	totalNet := decimal.Zero
	for _, mf := range fee.Members() {
		totalNet = totalNet.Add(mf.NetBalance())
	}
	if !totalNet.IsZero() {
		t.Errorf("net balances sum to %s, want 0", totalNet)
	}

	if _, err := svc.Sharing(ctx, project.ID, "user-2"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Sharing by non-owner: got %v, want ErrPermissionDenied", err)
	}
}

func TestGetMissingProject(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetProject(context.Background(), "missing", "user-1")
	if !errors.Is(err, storage.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}
