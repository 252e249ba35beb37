package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Identity is the user/role provider: lookups, password checks and role
// membership over a UserStore.
type Identity struct {
	store UserStore
	cost  int
}

func NewIdentity(store UserStore) *Identity {
	return &Identity{store: store, cost: 10}
}

func (i *Identity) FindUserByName(ctx context.Context, username string) (User, error) {
	u, _, err := i.store.UserByName(ctx, username)
	return u, err
}

func (i *Identity) FindUserByID(ctx context.Context, id int) (User, error) {
	return i.store.UserByID(ctx, id)
}

func (i *Identity) ListUsers(ctx context.Context) ([]User, error) {
	return i.store.ListUsers(ctx)
}

// VerifyPassword reports whether password matches the stored hash for u.
func (i *Identity) VerifyPassword(ctx context.Context, u User, password string) bool {
	_, hash, err := i.store.UserByName(ctx, u.Username)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate resolves username and checks password. Unknown users and
// wrong passwords both yield ErrUnauthorized.
func (i *Identity) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, hash, err := i.store.UserByName(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthorized
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrUnauthorized
	}
	return u, nil
}

func (i *Identity) CreateUser(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: fill all fields", ErrValidation)
	}
	if len(password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password too short", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), i.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return i.store.InsertUser(ctx, username, string(hash))
}

func (i *Identity) GetRoles(ctx context.Context, u User) ([]string, error) {
	return i.store.UserRoles(ctx, u.ID)
}

func (i *Identity) AddToRole(ctx context.Context, u User, role string) error {
	return i.store.AddUserRole(ctx, u.ID, role)
}

func (i *Identity) EnsureRoles(ctx context.Context, roles ...string) error {
	for _, r := range roles {
		if err := i.store.EnsureRole(ctx, r); err != nil {
			return fmt.Errorf("ensure role %q: %w", r, err)
		}
	}
	return nil
}

// SeedAdmin creates the admin account if missing and makes sure it holds
// the admin role.
func (i *Identity) SeedAdmin(ctx context.Context, username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, fmt.Errorf("%w: admin username or password is empty", ErrValidation)
	}
	u, err := i.FindUserByName(ctx, username)
	if errors.Is(err, ErrNotFound) {
		u, err = i.CreateUser(ctx, username, password)
	}
	if err != nil {
		return User{}, fmt.Errorf("seed admin user: %w", err)
	}
	if err := i.AddToRole(ctx, u, RoleAdmin); err != nil {
		return User{}, fmt.Errorf("seed admin role: %w", err)
	}
	return u, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
