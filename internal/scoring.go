package internal

import (
	"context"
	"sort"
)

// Scoring recomputes scores from the current guesses and winners on every
// call; nothing is cached.
type Scoring struct {
	guesses GuessStore
	catalog CatalogStore
	users   UserStore
}

func NewScoring(guesses GuessStore, catalog CatalogStore, users UserStore) *Scoring {
	return &Scoring{guesses: guesses, catalog: catalog, users: users}
}

// winners maps category id to winning nominee id for categories that have one.
func winners(cats []Category) map[int]int {
	out := make(map[int]int, len(cats))
	for _, c := range cats {
		if c.WinnerID != nil {
			out[c.ID] = *c.WinnerID
		}
	}
	return out
}

func isCorrect(g Guess, won map[int]int) bool {
	w, ok := won[g.CategoryID]
	return ok && g.NomineeID == w
}

// countCorrect groups guesses by user and counts matches against winners.
func countCorrect(guesses []Guess, won map[int]int) map[int]int {
	out := map[int]int{}
	for _, g := range guesses {
		if isCorrect(g, won) {
			out[g.UserID]++
		}
	}
	return out
}

func (s *Scoring) loadWinners(ctx context.Context) (map[int]int, []Category, error) {
	cats, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	return winners(cats), cats, nil
}

func (s *Scoring) ScoreForUser(ctx context.Context, userID int) (int, error) {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return 0, err
	}
	won, _, err := s.loadWinners(ctx)
	if err != nil {
		return 0, err
	}
	guesses, err := s.guesses.GuessesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return countCorrect(guesses, won)[userID], nil
}

// Scores maps every known user id to its score, zero included.
func (s *Scoring) Scores(ctx context.Context) (map[int]int, error) {
	board, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(board))
	for _, us := range board {
		out[us.UserID] = us.Score
	}
	return out, nil
}

// Leaderboard lists all users, highest score first, ties by id.
func (s *Scoring) Leaderboard(ctx context.Context) ([]UserScore, error) {
	won, _, err := s.loadWinners(ctx)
	if err != nil {
		return nil, err
	}
	guesses, err := s.guesses.ListGuesses(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	counts := countCorrect(guesses, won)

	out := make([]UserScore, 0, len(users))
	for _, u := range users {
		out = append(out, UserScore{UserID: u.ID, Username: u.Username, Score: counts[u.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// CategoryStats reports, per category, how many guesses were cast, how many
// hit the winner and how they spread over nominees.
func (s *Scoring) CategoryStats(ctx context.Context) ([]CategoryStats, error) {
	won, cats, err := s.loadWinners(ctx)
	if err != nil {
		return nil, err
	}
	guesses, err := s.guesses.ListGuesses(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[int]int, len(cats))
	out := make([]CategoryStats, 0, len(cats))
	for _, c := range cats {
		st := CategoryStats{
			CategoryID: c.ID,
			Name:       c.Name,
			WinnerID:   cloneInt(c.WinnerID),
			PerNominee: make(map[int]int, len(c.Nominees)),
		}
		for _, n := range c.Nominees {
			st.PerNominee[n.ID] = 0
		}
		index[c.ID] = len(out)
		out = append(out, st)
	}
	for _, g := range guesses {
		i, ok := index[g.CategoryID]
		if !ok {
			continue
		}
		out[i].Total++
		out[i].PerNominee[g.NomineeID]++
		if isCorrect(g, won) {
			out[i].Correct++
		}
	}
	return out, nil
}
