package internal

import (
	"context"
	"fmt"
	"strings"
)

// Catalog holds the admin operations over categories and nominees. Callers
// are expected to be authorized already.
type Catalog struct {
	store CatalogStore
}

func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store}
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	return name, nil
}

// optional trims v and maps blank values to nil.
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (c *Catalog) CreateCategory(ctx context.Context, name string, description *string) (Category, error) {
	name, err := requireName(name)
	if err != nil {
		return Category{}, err
	}
	return c.store.CreateCategory(ctx, name, optional(description))
}

func (c *Catalog) EditCategory(ctx context.Context, id int, name string, description *string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return c.store.UpdateCategory(ctx, id, name, optional(description))
}

func (c *Catalog) DeleteCategory(ctx context.Context, id int) error {
	return c.store.DeleteCategory(ctx, id)
}

func (c *Catalog) Category(ctx context.Context, id int) (Category, error) {
	return c.store.GetCategory(ctx, id)
}

func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	return c.store.ListCategories(ctx)
}

func (c *Catalog) CreateNominee(ctx context.Context, name string, smallImage, largeImage *string) (Nominee, error) {
	name, err := requireName(name)
	if err != nil {
		return Nominee{}, err
	}
	return c.store.CreateNominee(ctx, name, optional(smallImage), optional(largeImage))
}

func (c *Catalog) EditNominee(ctx context.Context, id int, name string, smallImage, largeImage *string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return c.store.UpdateNominee(ctx, id, name, optional(smallImage), optional(largeImage))
}

func (c *Catalog) DeleteNominee(ctx context.Context, id int) error {
	return c.store.DeleteNominee(ctx, id)
}

func (c *Catalog) Nominee(ctx context.Context, id int) (Nominee, error) {
	return c.store.GetNominee(ctx, id)
}

func (c *Catalog) Nominees(ctx context.Context) ([]Nominee, error) {
	return c.store.ListNominees(ctx)
}

func (c *Catalog) AddNomineeToCategory(ctx context.Context, categoryID, nomineeID int) error {
	return c.store.AddNominee(ctx, categoryID, nomineeID)
}

func (c *Catalog) RemoveNomineeEverywhere(ctx context.Context, nomineeID int) error {
	return c.store.DetachNominee(ctx, nomineeID)
}

// SetCategoryWinner sets or, with a nil nomineeID, clears the winner. The
// nominee must currently belong to the category.
func (c *Catalog) SetCategoryWinner(ctx context.Context, categoryID int, nomineeID *int) error {
	return c.store.SetWinner(ctx, categoryID, nomineeID)
}
