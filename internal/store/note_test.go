// ABOUTME: Integration tests for store/note.go.
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"testing"

	"github.com/pantharshit007/pms/internal/testutil"
)

func TestNoteLifecycle(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "nina@example.com", "nina", "", "", "hash")
	p, _ := s.CreateProject(ctx, "Notes", "", u.ID)

	n, err := s.CreateNote(ctx, p.ID, "retro summary", u.ID)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if n.Content != "retro summary" || n.CreatedBy != u.ID {
		t.Errorf("created note = %+v", n)
	}

	got, err := s.GetNote(ctx, p.ID, n.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got == nil || got.ID != n.ID {
		t.Fatalf("GetNote = %+v, want %v", got, n.ID)
	}

	updated, err := s.UpdateNote(ctx, p.ID, n.ID, "amended")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Content != "amended" {
		t.Errorf("Content = %q, want amended", updated.Content)
	}

	deleted, err := s.DeleteNote(ctx, p.ID, n.ID)
	if err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if !deleted {
		t.Error("DeleteNote should report a deleted row")
	}
	gone, _ := s.GetNote(ctx, p.ID, n.ID)
	if gone != nil {
		t.Error("note should be gone after delete")
	}
}

func TestNoteProjectScoping(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "omar@example.com", "omar", "", "", "hash")
	p1, _ := s.CreateProject(ctx, "One", "", u.ID)
	p2, _ := s.CreateProject(ctx, "Two", "", u.ID)
	n, _ := s.CreateNote(ctx, p1.ID, "scoped", u.ID)

	// A note is not reachable through another project's scope.
	got, err := s.GetNote(ctx, p2.ID, n.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got != nil {
		t.Error("note should not resolve under a different project")
	}

	mine, err := s.ListNotesForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListNotesForUser: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != n.ID {
		t.Errorf("ListNotesForUser = %+v, want the one note", mine)
	}
}
