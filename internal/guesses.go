package internal

import (
	"context"
	"fmt"
)

// Guesses serves per-user guess views and accepts submissions. Submitting
// again for the same category replaces the earlier choice.
type Guesses struct {
	store   GuessStore
	catalog CatalogStore
	users   UserStore
	gate    *VisibilityGate
}

func NewGuesses(store GuessStore, catalog CatalogStore, users UserStore, gate *VisibilityGate) *Guesses {
	return &Guesses{store: store, catalog: catalog, users: users, gate: gate}
}

// Submit records the user's guess for a category. It is refused once the
// gate reads locked; a submission racing a toggle may still land.
func (g *Guesses) Submit(ctx context.Context, userID, categoryID, nomineeID int) (Guess, error) {
	if g.gate != nil && g.gate.Status() {
		return Guess{}, fmt.Errorf("%w: guesses are locked", ErrForbidden)
	}
	return g.store.UpsertGuess(ctx, userID, categoryID, nomineeID)
}

// MyGuesses covers every category, with a nil guess where the user has not
// voted.
func (g *Guesses) MyGuesses(ctx context.Context, userID int) ([]CategoryGuess, error) {
	cats, err := g.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	guesses, err := g.store.GuessesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[int]Guess, len(guesses))
	for _, gs := range guesses {
		byCategory[gs.CategoryID] = gs
	}

	out := make([]CategoryGuess, 0, len(cats))
	for _, c := range cats {
		cg := CategoryGuess{Category: c, Winner: c.Winner()}
		if gs, ok := byCategory[c.ID]; ok {
			gs := gs
			cg.MyGuess = &gs
		}
		out = append(out, cg)
	}
	return out, nil
}

func (g *Guesses) MyGuess(ctx context.Context, userID, categoryID int) (CategoryGuess, error) {
	c, err := g.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return CategoryGuess{}, err
	}
	gs, err := g.store.GetGuess(ctx, userID, categoryID)
	if err != nil {
		return CategoryGuess{}, err
	}
	return CategoryGuess{Category: c, Winner: c.Winner(), MyGuess: gs}, nil
}

func (g *Guesses) GuessesForCategory(ctx context.Context, categoryID int) ([]Guess, error) {
	if _, err := g.catalog.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return g.store.GuessesByCategory(ctx, categoryID)
}

// GuessesForUser is the same view as MyGuesses for another user, looked up
// by name. Exposure to non-owners is gated by the caller.
func (g *Guesses) GuessesForUser(ctx context.Context, username string) ([]CategoryGuess, error) {
	u, _, err := g.users.UserByName(ctx, username)
	if err != nil {
		return nil, err
	}
	return g.MyGuesses(ctx, u.ID)
}
