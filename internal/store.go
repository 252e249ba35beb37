package internal

import "context"

// CatalogStore persists categories, nominees, their association and each
// category's winner. Deletes and winner updates are atomic: cascades run in
// the same unit of work as the delete itself.
type CatalogStore interface {
	CreateCategory(ctx context.Context, name string, description *string) (Category, error)
	UpdateCategory(ctx context.Context, id int, name string, description *string) error
	DeleteCategory(ctx context.Context, id int) error
	GetCategory(ctx context.Context, id int) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	CreateNominee(ctx context.Context, name string, smallImage, largeImage *string) (Nominee, error)
	UpdateNominee(ctx context.Context, id int, name string, smallImage, largeImage *string) error
	DeleteNominee(ctx context.Context, id int) error
	GetNominee(ctx context.Context, id int) (Nominee, error)
	ListNominees(ctx context.Context) ([]Nominee, error)

	// AddNominee is a no-op when the pair is already associated.
	AddNominee(ctx context.Context, categoryID, nomineeID int) error
	// DetachNominee removes the nominee from every category and clears the
	// winner of any category that pointed at it.
	DetachNominee(ctx context.Context, nomineeID int) error
	// SetWinner clears the winner when nomineeID is nil.
	SetWinner(ctx context.Context, categoryID int, nomineeID *int) error
}

// GuessStore holds at most one guess per (user, category).
type GuessStore interface {
	// UpsertGuess creates the user's guess or replaces its nominee. The
	// nominee must belong to the category at the time of the call.
	UpsertGuess(ctx context.Context, userID, categoryID, nomineeID int) (Guess, error)
	GetGuess(ctx context.Context, userID, categoryID int) (*Guess, error)
	GuessesByUser(ctx context.Context, userID int) ([]Guess, error)
	GuessesByCategory(ctx context.Context, categoryID int) ([]Guess, error)
	ListGuesses(ctx context.Context) ([]Guess, error)
}

// UserStore is the persistence side of the identity provider.
type UserStore interface {
	InsertUser(ctx context.Context, username, passHash string) (User, error)
	UserByName(ctx context.Context, username string) (User, string, error)
	UserByID(ctx context.Context, id int) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	EnsureRole(ctx context.Context, role string) error
	AddUserRole(ctx context.Context, userID int, role string) error
	UserRoles(ctx context.Context, userID int) ([]string, error)
}

type AuditLog interface {
	LogAction(ctx context.Context, actorID *int, action, details string) error
	ListLogs(ctx context.Context, limit int) ([]LogEntry, error)
}

// Store bundles every persistence concern behind one backend.
type Store interface {
	CatalogStore
	GuessStore
	UserStore
	AuditLog
	Close()
}
