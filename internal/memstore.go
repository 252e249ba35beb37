package internal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memUser struct {
	user     User
	passHash string
	roles    []string
}

type memCategory struct {
	id          int
	name        string
	description *string
	winnerID    *int
	nominees    map[int]struct{}
}

type memLog struct {
	id        int64
	createdAt time.Time
	actorID   *int
	action    string
	details   string
}

// MemStore is an in-process Store. A single mutex makes every method,
// including cascades, atomic.
type MemStore struct {
	mu sync.Mutex

	nextUserID     int
	nextCategoryID int
	nextNomineeID  int
	nextGuessID    int

	users      map[int]*memUser
	usernames  map[string]int
	roles      map[string]struct{}
	categories map[int]*memCategory
	nominees   map[int]*Nominee
	guesses    map[int]*Guess
	guessIndex map[[2]int]int
	logs       []memLog
	now        func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextUserID:     1,
		nextCategoryID: 1,
		nextNomineeID:  1,
		nextGuessID:    1,
		users:          make(map[int]*memUser),
		usernames:      make(map[string]int),
		roles:          make(map[string]struct{}),
		categories:     make(map[int]*memCategory),
		nominees:       make(map[int]*Nominee),
		guesses:        make(map[int]*Guess),
		guessIndex:     make(map[[2]int]int),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemStore) Close() {}

func notFound(kind string, id int) error {
	return fmt.Errorf("%w: %s %d not found", ErrNotFound, kind, id)
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ---------- Catalog ----------

func (s *MemStore) CreateCategory(_ context.Context, name string, description *string) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &memCategory{
		id:          s.nextCategoryID,
		name:        name,
		description: cloneString(description),
		nominees:    make(map[int]struct{}),
	}
	s.nextCategoryID++
	s.categories[c.id] = c
	return s.categoryView(c), nil
}

func (s *MemStore) UpdateCategory(_ context.Context, id int, name string, description *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return notFound("category", id)
	}
	c.name = name
	c.description = cloneString(description)
	return nil
}

func (s *MemStore) DeleteCategory(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return notFound("category", id)
	}
	for gid, g := range s.guesses {
		if g.CategoryID == id {
			s.dropGuess(gid)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *MemStore) GetCategory(_ context.Context, id int) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return Category{}, notFound("category", id)
	}
	return s.categoryView(c), nil
}

func (s *MemStore) ListCategories(_ context.Context) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Category, 0, len(s.categories))
	for _, id := range sortedKeys(s.categories) {
		out = append(out, s.categoryView(s.categories[id]))
	}
	return out, nil
}

func (s *MemStore) CreateNominee(_ context.Context, name string, smallImage, largeImage *string) (Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &Nominee{
		ID:         s.nextNomineeID,
		Name:       name,
		SmallImage: cloneString(smallImage),
		LargeImage: cloneString(largeImage),
	}
	s.nextNomineeID++
	s.nominees[n.ID] = n
	return s.nomineeView(n), nil
}

func (s *MemStore) UpdateNominee(_ context.Context, id int, name string, smallImage, largeImage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nominees[id]
	if !ok {
		return notFound("nominee", id)
	}
	n.Name = name
	n.SmallImage = cloneString(smallImage)
	n.LargeImage = cloneString(largeImage)
	return nil
}

func (s *MemStore) DeleteNominee(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nominees[id]; !ok {
		return notFound("nominee", id)
	}
	for gid, g := range s.guesses {
		if g.NomineeID == id {
			s.dropGuess(gid)
		}
	}
	s.detach(id)
	delete(s.nominees, id)
	return nil
}

func (s *MemStore) GetNominee(_ context.Context, id int) (Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nominees[id]
	if !ok {
		return Nominee{}, notFound("nominee", id)
	}
	return s.nomineeView(n), nil
}

func (s *MemStore) ListNominees(_ context.Context) ([]Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Nominee, 0, len(s.nominees))
	for _, id := range sortedKeys(s.nominees) {
		out = append(out, s.nomineeView(s.nominees[id]))
	}
	return out, nil
}

func (s *MemStore) AddNominee(_ context.Context, categoryID, nomineeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return notFound("category", categoryID)
	}
	if _, ok := s.nominees[nomineeID]; !ok {
		return notFound("nominee", nomineeID)
	}
	c.nominees[nomineeID] = struct{}{}
	return nil
}

func (s *MemStore) DetachNominee(_ context.Context, nomineeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nominees[nomineeID]; !ok {
		return notFound("nominee", nomineeID)
	}
	s.detach(nomineeID)
	return nil
}

func (s *MemStore) SetWinner(_ context.Context, categoryID int, nomineeID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return notFound("category", categoryID)
	}
	if nomineeID == nil {
		c.winnerID = nil
		return nil
	}
	if _, ok := c.nominees[*nomineeID]; !ok {
		return errNomineeNotInCategory
	}
	c.winnerID = cloneInt(nomineeID)
	return nil
}

var errNomineeNotInCategory = fmt.Errorf("%w: nominee does not belong to category", ErrValidation)

// detach must be called with s.mu held.
func (s *MemStore) detach(nomineeID int) {
	for _, c := range s.categories {
		delete(c.nominees, nomineeID)
		if c.winnerID != nil && *c.winnerID == nomineeID {
			c.winnerID = nil
		}
	}
}

func (s *MemStore) categoryView(c *memCategory) Category {
	out := Category{
		ID:          c.id,
		Name:        c.name,
		Description: cloneString(c.description),
		WinnerID:    cloneInt(c.winnerID),
		Nominees:    make([]Nominee, 0, len(c.nominees)),
	}
	for _, nid := range sortedKeys(c.nominees) {
		if n, ok := s.nominees[nid]; ok {
			out.Nominees = append(out.Nominees, s.nomineeView(n))
		}
	}
	return out
}

func (s *MemStore) nomineeView(n *Nominee) Nominee {
	out := Nominee{
		ID:          n.ID,
		Name:        n.Name,
		SmallImage:  cloneString(n.SmallImage),
		LargeImage:  cloneString(n.LargeImage),
		CategoryIDs: []int{},
	}
	for _, cid := range sortedKeys(s.categories) {
		if _, ok := s.categories[cid].nominees[n.ID]; ok {
			out.CategoryIDs = append(out.CategoryIDs, cid)
		}
	}
	return out
}

// ---------- Guesses ----------

func (s *MemStore) UpsertGuess(_ context.Context, userID, categoryID, nomineeID int) (Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return Guess{}, notFound("user", userID)
	}
	c, ok := s.categories[categoryID]
	if !ok {
		return Guess{}, notFound("category", categoryID)
	}
	if _, ok := s.nominees[nomineeID]; !ok {
		return Guess{}, notFound("nominee", nomineeID)
	}
	if _, ok := c.nominees[nomineeID]; !ok {
		return Guess{}, errNomineeNotInCategory
	}
	now := s.now()
	key := [2]int{userID, categoryID}
	if gid, ok := s.guessIndex[key]; ok {
		g := s.guesses[gid]
		g.NomineeID = nomineeID
		g.UpdatedAt = now
		return *g, nil
	}
	g := &Guess{
		ID:         s.nextGuessID,
		UserID:     userID,
		CategoryID: categoryID,
		NomineeID:  nomineeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.nextGuessID++
	s.guesses[g.ID] = g
	s.guessIndex[key] = g.ID
	return *g, nil
}

func (s *MemStore) GetGuess(_ context.Context, userID, categoryID int) (*Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gid, ok := s.guessIndex[[2]int{userID, categoryID}]
	if !ok {
		return nil, nil
	}
	g := *s.guesses[gid]
	return &g, nil
}

func (s *MemStore) GuessesByUser(_ context.Context, userID int) ([]Guess, error) {
	return s.filterGuesses(func(g *Guess) bool { return g.UserID == userID }), nil
}

func (s *MemStore) GuessesByCategory(_ context.Context, categoryID int) ([]Guess, error) {
	return s.filterGuesses(func(g *Guess) bool { return g.CategoryID == categoryID }), nil
}

func (s *MemStore) ListGuesses(_ context.Context) ([]Guess, error) {
	return s.filterGuesses(func(*Guess) bool { return true }), nil
}

func (s *MemStore) filterGuesses(keep func(g *Guess) bool) []Guess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Guess{}
	for _, id := range sortedKeys(s.guesses) {
		if g := s.guesses[id]; keep(g) {
			out = append(out, *g)
		}
	}
	return out
}

// dropGuess must be called with s.mu held.
func (s *MemStore) dropGuess(id int) {
	g, ok := s.guesses[id]
	if !ok {
		return
	}
	delete(s.guessIndex, [2]int{g.UserID, g.CategoryID})
	delete(s.guesses, id)
}

// ---------- Users ----------

func (s *MemStore) InsertUser(_ context.Context, username, passHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := s.usernames[key]; ok {
		return User{}, fmt.Errorf("%w: username already exists", ErrConflict)
	}
	u := &memUser{user: User{ID: s.nextUserID, Username: username}, passHash: passHash}
	s.nextUserID++
	s.users[u.user.ID] = u
	s.usernames[key] = u.user.ID
	return u.user, nil
}

func (s *MemStore) UserByName(_ context.Context, username string) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usernames[strings.ToLower(username)]
	if !ok {
		return User{}, "", fmt.Errorf("%w: user %q not found", ErrNotFound, username)
	}
	u := s.users[id]
	return u.user, u.passHash, nil
}

func (s *MemStore) UserByID(_ context.Context, id int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, notFound("user", id)
	}
	return u.user, nil
}

func (s *MemStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, id := range sortedKeys(s.users) {
		out = append(out, s.users[id].user)
	}
	return out, nil
}

func (s *MemStore) EnsureRole(_ context.Context, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role] = struct{}{}
	return nil
}

func (s *MemStore) AddUserRole(_ context.Context, userID int, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	if _, ok := s.roles[role]; !ok {
		return fmt.Errorf("%w: role %q does not exist", ErrNotFound, role)
	}
	for _, r := range u.roles {
		if r == role {
			return nil
		}
	}
	u.roles = append(u.roles, role)
	sort.Strings(u.roles)
	return nil
}

func (s *MemStore) UserRoles(_ context.Context, userID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, notFound("user", userID)
	}
	return append([]string{}, u.roles...), nil
}

// ---------- Audit ----------

func (s *MemStore) LogAction(_ context.Context, actorID *int, action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, memLog{
		id:        int64(len(s.logs) + 1),
		createdAt: s.now(),
		actorID:   cloneInt(actorID),
		action:    action,
		details:   details,
	})
	return nil
}

func (s *MemStore) ListLogs(_ context.Context, limit int) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []LogEntry{}
	for i := len(s.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		l := s.logs[i]
		actor := "(deleted)"
		if l.actorID != nil {
			if u, ok := s.users[*l.actorID]; ok {
				actor = u.user.Username
			}
		}
		out = append(out, LogEntry{
			ID:        l.id,
			CreatedAt: l.createdAt,
			Actor:     actor,
			Action:    l.action,
			Details:   l.details,
		})
	}
	return out, nil
}
