package internal

import (
	"context"
	"errors"
	"testing"
)

// runStoreContract exercises the behavior every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AddNomineeIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cat := mustCategory(t, s, "Best Picture")
		n := mustNominee(t, s, "A")

		for i := 0; i < 2; i++ {
			if err := s.AddNominee(ctx, cat.ID, n.ID); err != nil {
				t.Fatalf("add nominee #%d: %v", i+1, err)
			}
		}
		got, err := s.GetCategory(ctx, cat.ID)
		if err != nil {
			t.Fatalf("get category: %v", err)
		}
		if len(got.Nominees) != 1 || got.Nominees[0].ID != n.ID {
			t.Fatalf("expected exactly one association, got %+v", got.Nominees)
		}
	})

	t.Run("AddNomineeUnknownIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cat := mustCategory(t, s, "Best Director")
		n := mustNominee(t, s, "A")

		if err := s.AddNominee(ctx, cat.ID+100, n.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for unknown category, got %v", err)
		}
		if err := s.AddNominee(ctx, cat.ID, n.ID+100); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for unknown nominee, got %v", err)
		}
	})

	t.Run("WinnerMustBelongToCategory", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cat := mustCategory(t, s, "Best Picture")
		a := mustNominee(t, s, "A")
		outsider := mustNominee(t, s, "Outsider")
		mustAdd(t, s, cat.ID, a.ID)

		if err := s.SetWinner(ctx, cat.ID, &outsider.ID); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if err := s.SetWinner(ctx, cat.ID, &a.ID); err != nil {
			t.Fatalf("set winner: %v", err)
		}
		got, _ := s.GetCategory(ctx, cat.ID)
		if got.WinnerID == nil || *got.WinnerID != a.ID {
			t.Fatalf("expected winner %d, got %v", a.ID, got.WinnerID)
		}
		if err := s.SetWinner(ctx, cat.ID, nil); err != nil {
			t.Fatalf("clear winner: %v", err)
		}
		got, _ = s.GetCategory(ctx, cat.ID)
		if got.WinnerID != nil {
			t.Fatalf("expected winner cleared, got %d", *got.WinnerID)
		}
		if err := s.SetWinner(ctx, cat.ID+100, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for unknown category, got %v", err)
		}
	})

	t.Run("DeleteNomineeCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "ana")
		cat := mustCategory(t, s, "Best Picture")
		other := mustCategory(t, s, "Best Editing")
		a := mustNominee(t, s, "A")
		b := mustNominee(t, s, "B")
		mustAdd(t, s, cat.ID, a.ID)
		mustAdd(t, s, cat.ID, b.ID)
		mustAdd(t, s, other.ID, a.ID)
		if err := s.SetWinner(ctx, cat.ID, &a.ID); err != nil {
			t.Fatalf("set winner: %v", err)
		}
		if _, err := s.UpsertGuess(ctx, u.ID, cat.ID, a.ID); err != nil {
			t.Fatalf("guess: %v", err)
		}

		if err := s.DeleteNominee(ctx, a.ID); err != nil {
			t.Fatalf("delete nominee: %v", err)
		}
		got, _ := s.GetCategory(ctx, cat.ID)
		if got.WinnerID != nil {
			t.Fatalf("expected winner cleared after nominee deletion")
		}
		if got.HasNominee(a.ID) || !got.HasNominee(b.ID) {
			t.Fatalf("unexpected nominees after deletion: %+v", got.Nominees)
		}
		got, _ = s.GetCategory(ctx, other.ID)
		if len(got.Nominees) != 0 {
			t.Fatalf("expected nominee detached from every category, got %+v", got.Nominees)
		}
		guesses, _ := s.GuessesByUser(ctx, u.ID)
		if len(guesses) != 0 {
			t.Fatalf("expected guesses on deleted nominee removed, got %+v", guesses)
		}
		if _, err := s.GetNominee(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected deleted nominee gone, got %v", err)
		}
	})

	t.Run("DeleteCategoryCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "bia")
		cat := mustCategory(t, s, "Best Picture")
		a := mustNominee(t, s, "A")
		mustAdd(t, s, cat.ID, a.ID)
		if _, err := s.UpsertGuess(ctx, u.ID, cat.ID, a.ID); err != nil {
			t.Fatalf("guess: %v", err)
		}

		if err := s.DeleteCategory(ctx, cat.ID); err != nil {
			t.Fatalf("delete category: %v", err)
		}
		if guesses, _ := s.ListGuesses(ctx); len(guesses) != 0 {
			t.Fatalf("expected guesses removed, got %+v", guesses)
		}
		n, err := s.GetNominee(ctx, a.ID)
		if err != nil {
			t.Fatalf("nominee must survive category deletion: %v", err)
		}
		if len(n.CategoryIDs) != 0 {
			t.Fatalf("expected association cleared, got %v", n.CategoryIDs)
		}
		if err := s.DeleteCategory(ctx, cat.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
	})

	t.Run("DetachNomineeClearsWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cat := mustCategory(t, s, "Best Sound")
		a := mustNominee(t, s, "A")
		mustAdd(t, s, cat.ID, a.ID)
		if err := s.SetWinner(ctx, cat.ID, &a.ID); err != nil {
			t.Fatalf("set winner: %v", err)
		}

		if err := s.DetachNominee(ctx, a.ID); err != nil {
			t.Fatalf("detach: %v", err)
		}
		got, _ := s.GetCategory(ctx, cat.ID)
		if got.WinnerID != nil || len(got.Nominees) != 0 {
			t.Fatalf("expected empty category without winner, got %+v", got)
		}
		if _, err := s.GetNominee(ctx, a.ID); err != nil {
			t.Fatalf("detached nominee must still exist: %v", err)
		}
		if err := s.DetachNominee(ctx, a.ID+100); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("UpsertGuessOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "caio")
		cat := mustCategory(t, s, "Best Picture")
		a := mustNominee(t, s, "A")
		b := mustNominee(t, s, "B")
		mustAdd(t, s, cat.ID, a.ID)
		mustAdd(t, s, cat.ID, b.ID)

		first, err := s.UpsertGuess(ctx, u.ID, cat.ID, a.ID)
		if err != nil {
			t.Fatalf("first guess: %v", err)
		}
		second, err := s.UpsertGuess(ctx, u.ID, cat.ID, b.ID)
		if err != nil {
			t.Fatalf("second guess: %v", err)
		}
		if second.ID != first.ID || second.NomineeID != b.ID {
			t.Fatalf("expected guess %d overwritten with %d, got %+v", first.ID, b.ID, second)
		}
		guesses, _ := s.GuessesByCategory(ctx, cat.ID)
		if len(guesses) != 1 {
			t.Fatalf("expected one guess per user and category, got %d", len(guesses))
		}
		g, err := s.GetGuess(ctx, u.ID, cat.ID)
		if err != nil || g == nil || g.NomineeID != b.ID {
			t.Fatalf("unexpected stored guess %+v (err %v)", g, err)
		}
	})

	t.Run("UpsertGuessRequiresMembership", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "duda")
		cat := mustCategory(t, s, "Best Picture")
		outsider := mustNominee(t, s, "Outsider")

		if _, err := s.UpsertGuess(ctx, u.ID, cat.ID, outsider.ID); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, err := s.UpsertGuess(ctx, u.ID, cat.ID+100, outsider.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for unknown category, got %v", err)
		}
		g, err := s.GetGuess(ctx, u.ID, cat.ID)
		if err != nil || g != nil {
			t.Fatalf("expected no guess, got %+v (err %v)", g, err)
		}
	})

	t.Run("UsernamesAreUniqueIgnoringCase", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustUser(t, s, "Eva")
		if _, err := s.InsertUser(ctx, "eva", "hash"); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		u, _, err := s.UserByName(ctx, "EVA")
		if err != nil || u.Username != "Eva" {
			t.Fatalf("expected lookup ignoring case, got %+v (err %v)", u, err)
		}
	})

	t.Run("RolesRequireExistingRole", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "fabi")
		if err := s.AddUserRole(ctx, u.ID, RoleAdmin); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for missing role, got %v", err)
		}
		if err := s.EnsureRole(ctx, RoleAdmin); err != nil {
			t.Fatalf("ensure role: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := s.AddUserRole(ctx, u.ID, RoleAdmin); err != nil {
				t.Fatalf("add role: %v", err)
			}
		}
		roles, err := s.UserRoles(ctx, u.ID)
		if err != nil || len(roles) != 1 || roles[0] != RoleAdmin {
			t.Fatalf("unexpected roles %v (err %v)", roles, err)
		}
	})

	t.Run("LogsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "gabi")
		_ = s.LogAction(ctx, &u.ID, "first", "")
		_ = s.LogAction(ctx, nil, "second", "x=1")

		logs, err := s.ListLogs(ctx, 10)
		if err != nil {
			t.Fatalf("list logs: %v", err)
		}
		if len(logs) != 2 || logs[0].Action != "second" || logs[1].Action != "first" {
			t.Fatalf("unexpected log order %+v", logs)
		}
		if logs[0].Actor != "(deleted)" || logs[1].Actor != "gabi" {
			t.Fatalf("unexpected actors %q, %q", logs[0].Actor, logs[1].Actor)
		}
		if logs, _ := s.ListLogs(ctx, 1); len(logs) != 1 {
			t.Fatalf("expected limit to apply, got %d", len(logs))
		}
	})
}

func mustCategory(t *testing.T, s CatalogStore, name string) Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), name, nil)
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

func mustNominee(t *testing.T, s CatalogStore, name string) Nominee {
	t.Helper()
	n, err := s.CreateNominee(context.Background(), name, nil, nil)
	if err != nil {
		t.Fatalf("create nominee %q: %v", name, err)
	}
	return n
}

func mustAdd(t *testing.T, s CatalogStore, categoryID, nomineeID int) {
	t.Helper()
	if err := s.AddNominee(context.Background(), categoryID, nomineeID); err != nil {
		t.Fatalf("add nominee %d to %d: %v", nomineeID, categoryID, err)
	}
}

func mustUser(t *testing.T, s UserStore, name string) User {
	t.Helper()
	u, err := s.InsertUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("insert user %q: %v", name, err)
	}
	return u
}
