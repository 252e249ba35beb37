package internal

import (
	"context"
	"errors"
	"testing"
)

type scoringFixture struct {
	store   *MemStore
	catalog *Catalog
	scoring *Scoring
}

func newScoringFixture() scoringFixture {
	s := NewMemStore()
	return scoringFixture{store: s, catalog: NewCatalog(s), scoring: NewScoring(s, s, s)}
}

func TestScoreFollowsWinnerChanges(t *testing.T) {
	f := newScoringFixture()
	ctx := context.Background()
	u := mustUser(t, f.store, "ana")
	cat, err := f.catalog.CreateCategory(ctx, "Best Picture", nil)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	a := mustNominee(t, f.store, "A")
	b := mustNominee(t, f.store, "B")
	mustAdd(t, f.store, cat.ID, a.ID)
	mustAdd(t, f.store, cat.ID, b.ID)
	if _, err := f.store.UpsertGuess(ctx, u.ID, cat.ID, a.ID); err != nil {
		t.Fatalf("guess: %v", err)
	}

	expectScore := func(want int) {
		t.Helper()
		got, err := f.scoring.ScoreForUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		if got != want {
			t.Fatalf("expected score %d, got %d", want, got)
		}
	}

	expectScore(0)
	if err := f.catalog.SetCategoryWinner(ctx, cat.ID, &b.ID); err != nil {
		t.Fatalf("set winner B: %v", err)
	}
	expectScore(0)
	if err := f.catalog.SetCategoryWinner(ctx, cat.ID, &a.ID); err != nil {
		t.Fatalf("set winner A: %v", err)
	}
	expectScore(1)
	if err := f.catalog.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	expectScore(0)
}

func TestScoreForUnknownUser(t *testing.T) {
	f := newScoringFixture()
	if _, err := f.scoring.ScoreForUser(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLeaderboardIncludesEveryUser(t *testing.T) {
	f := newScoringFixture()
	ctx := context.Background()
	ana := mustUser(t, f.store, "ana")
	bia := mustUser(t, f.store, "bia")
	caio := mustUser(t, f.store, "caio")

	pic := mustCategory(t, f.store, "Best Picture")
	dir := mustCategory(t, f.store, "Best Director")
	open := mustCategory(t, f.store, "Best Score")
	a := mustNominee(t, f.store, "A")
	b := mustNominee(t, f.store, "B")
	for _, c := range []Category{pic, dir, open} {
		mustAdd(t, f.store, c.ID, a.ID)
		mustAdd(t, f.store, c.ID, b.ID)
	}
	_ = f.store.SetWinner(ctx, pic.ID, &a.ID)
	_ = f.store.SetWinner(ctx, dir.ID, &b.ID)

	guesses := []struct{ user, category, nominee int }{
		{bia.ID, pic.ID, a.ID},
		{bia.ID, dir.ID, b.ID},
		{bia.ID, open.ID, a.ID},
		{ana.ID, pic.ID, a.ID},
		{ana.ID, dir.ID, a.ID},
	}
	for _, g := range guesses {
		if _, err := f.store.UpsertGuess(ctx, g.user, g.category, g.nominee); err != nil {
			t.Fatalf("guess: %v", err)
		}
	}

	board, err := f.scoring.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []UserScore{
		{UserID: bia.ID, Username: "bia", Score: 2},
		{UserID: ana.ID, Username: "ana", Score: 1},
		{UserID: caio.ID, Username: "caio", Score: 0},
	}
	if len(board) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), board)
	}
	for i := range want {
		if board[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], board[i])
		}
	}

	scores, err := f.scoring.Scores(ctx)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if scores[caio.ID] != 0 || scores[bia.ID] != 2 || len(scores) != 3 {
		t.Fatalf("unexpected score map %v", scores)
	}
}

func TestCategoryStats(t *testing.T) {
	f := newScoringFixture()
	ctx := context.Background()
	ana := mustUser(t, f.store, "ana")
	bia := mustUser(t, f.store, "bia")
	cat := mustCategory(t, f.store, "Best Picture")
	a := mustNominee(t, f.store, "A")
	b := mustNominee(t, f.store, "B")
	mustAdd(t, f.store, cat.ID, a.ID)
	mustAdd(t, f.store, cat.ID, b.ID)
	_, _ = f.store.UpsertGuess(ctx, ana.ID, cat.ID, a.ID)
	_, _ = f.store.UpsertGuess(ctx, bia.ID, cat.ID, a.ID)
	_ = f.store.SetWinner(ctx, cat.ID, &a.ID)

	stats, err := f.scoring.CategoryStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one category, got %d", len(stats))
	}
	st := stats[0]
	if st.Total != 2 || st.Correct != 2 {
		t.Fatalf("unexpected totals %+v", st)
	}
	if st.PerNominee[a.ID] != 2 || st.PerNominee[b.ID] != 0 {
		t.Fatalf("unexpected spread %v", st.PerNominee)
	}
}
