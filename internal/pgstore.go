package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store. Every multi-statement operation runs
// in a single transaction.
type PGStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPGStore(db *pgxpool.Pool, logger *slog.Logger) *PGStore {
	return &PGStore{db: db, logger: resolveLogger(logger)}
}

func (s *PGStore) Close() { s.db.Close() }

func (s *PGStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.db, fn)
}

func lockRow(ctx context.Context, db querier, table string, id int) (bool, error) {
	var found int
	err := qRow(ctx, db, psql.Select("id").From(table).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ---------- Catalog ----------

func (s *PGStore) CreateCategory(ctx context.Context, name string, description *string) (Category, error) {
	c := Category{Name: name, Description: description, Nominees: []Nominee{}}
	err := qRow(ctx, s.db, psql.Insert("categories").
		Columns("name", "description").
		Values(name, description).
		Suffix("RETURNING id"),
	).Scan(&c.ID)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *PGStore) UpdateCategory(ctx context.Context, id int, name string, description *string) error {
	tag, err := qExec(ctx, s.db, psql.Update("categories").
		Set("name", name).
		Set("description", description).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("category", id)
	}
	return nil
}

func (s *PGStore) DeleteCategory(ctx context.Context, id int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := lockRow(ctx, tx, "categories", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("category", id)
		}
		if _, err := qExec(ctx, tx, psql.Delete("guesses").Where(sq.Eq{"category_id": id})); err != nil {
			return err
		}
		if _, err := qExec(ctx, tx, psql.Delete("category_nominees").Where(sq.Eq{"category_id": id})); err != nil {
			return err
		}
		_, err = qExec(ctx, tx, psql.Delete("categories").Where(sq.Eq{"id": id}))
		return err
	})
}

func (s *PGStore) GetCategory(ctx context.Context, id int) (Category, error) {
	cats, err := s.loadCategories(ctx, sq.Eq{"c.id": id})
	if err != nil {
		return Category{}, err
	}
	if len(cats) == 0 {
		return Category{}, notFound("category", id)
	}
	return cats[0], nil
}

func (s *PGStore) ListCategories(ctx context.Context) ([]Category, error) {
	return s.loadCategories(ctx, nil)
}

func (s *PGStore) loadCategories(ctx context.Context, where sq.Sqlizer) ([]Category, error) {
	nominees, err := s.loadNominees(ctx, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Nominee, len(nominees))
	for _, n := range nominees {
		byID[n.ID] = n
	}

	q := psql.Select("c.id", "c.name", "c.description", "c.winner_nominee_id").
		From("categories c").
		OrderBy("c.id ASC")
	if where != nil {
		q = q.Where(where)
	}
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	index := map[int]int{}
	for rows.Next() {
		c := Category{Nominees: []Nominee{}}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.WinnerID); err != nil {
			return nil, err
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range nominees {
		for _, cid := range n.CategoryIDs {
			if i, ok := index[cid]; ok {
				out[i].Nominees = append(out[i].Nominees, byID[n.ID])
			}
		}
	}
	return out, nil
}

func (s *PGStore) CreateNominee(ctx context.Context, name string, smallImage, largeImage *string) (Nominee, error) {
	n := Nominee{Name: name, SmallImage: smallImage, LargeImage: largeImage, CategoryIDs: []int{}}
	err := qRow(ctx, s.db, psql.Insert("nominees").
		Columns("name", "small_image_url", "large_image_url").
		Values(name, smallImage, largeImage).
		Suffix("RETURNING id"),
	).Scan(&n.ID)
	if err != nil {
		return Nominee{}, err
	}
	return n, nil
}

func (s *PGStore) UpdateNominee(ctx context.Context, id int, name string, smallImage, largeImage *string) error {
	tag, err := qExec(ctx, s.db, psql.Update("nominees").
		Set("name", name).
		Set("small_image_url", smallImage).
		Set("large_image_url", largeImage).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("nominee", id)
	}
	return nil
}

func (s *PGStore) DeleteNominee(ctx context.Context, id int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := lockRow(ctx, tx, "nominees", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("nominee", id)
		}
		if _, err := qExec(ctx, tx, psql.Delete("guesses").Where(sq.Eq{"nominee_id": id})); err != nil {
			return err
		}
		if err := detachNominee(ctx, tx, id); err != nil {
			return err
		}
		_, err = qExec(ctx, tx, psql.Delete("nominees").Where(sq.Eq{"id": id}))
		return err
	})
}

func (s *PGStore) GetNominee(ctx context.Context, id int) (Nominee, error) {
	ns, err := s.loadNominees(ctx, sq.Eq{"n.id": id})
	if err != nil {
		return Nominee{}, err
	}
	if len(ns) == 0 {
		return Nominee{}, notFound("nominee", id)
	}
	return ns[0], nil
}

func (s *PGStore) ListNominees(ctx context.Context) ([]Nominee, error) {
	return s.loadNominees(ctx, nil)
}

func (s *PGStore) loadNominees(ctx context.Context, where sq.Sqlizer) ([]Nominee, error) {
	q := psql.Select(
		"n.id", "n.name", "n.small_image_url", "n.large_image_url",
		"COALESCE(array_agg(cn.category_id ORDER BY cn.category_id) FILTER (WHERE cn.category_id IS NOT NULL), '{}')",
	).
		From("nominees n").
		LeftJoin("category_nominees cn ON cn.nominee_id = n.id").
		GroupBy("n.id").
		OrderBy("n.id ASC")
	if where != nil {
		q = q.Where(where)
	}
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Nominee{}
	for rows.Next() {
		var n Nominee
		if err := rows.Scan(&n.ID, &n.Name, &n.SmallImage, &n.LargeImage, &n.CategoryIDs); err != nil {
			return nil, err
		}
		if n.CategoryIDs == nil {
			n.CategoryIDs = []int{}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PGStore) AddNominee(ctx context.Context, categoryID, nomineeID int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := lockRow(ctx, tx, "categories", categoryID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("category", categoryID)
		}
		if ok, err = lockRow(ctx, tx, "nominees", nomineeID); err != nil {
			return err
		}
		if !ok {
			return notFound("nominee", nomineeID)
		}
		_, err = qExec(ctx, tx, psql.Insert("category_nominees").
			Columns("category_id", "nominee_id").
			Values(categoryID, nomineeID).
			Suffix("ON CONFLICT DO NOTHING"))
		return err
	})
}

func (s *PGStore) DetachNominee(ctx context.Context, nomineeID int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := lockRow(ctx, tx, "nominees", nomineeID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("nominee", nomineeID)
		}
		return detachNominee(ctx, tx, nomineeID)
	})
}

func detachNominee(ctx context.Context, tx pgx.Tx, nomineeID int) error {
	if _, err := qExec(ctx, tx, psql.Update("categories").
		Set("winner_nominee_id", nil).
		Where(sq.Eq{"winner_nominee_id": nomineeID})); err != nil {
		return err
	}
	_, err := qExec(ctx, tx, psql.Delete("category_nominees").Where(sq.Eq{"nominee_id": nomineeID}))
	return err
}

func (s *PGStore) SetWinner(ctx context.Context, categoryID int, nomineeID *int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := lockRow(ctx, tx, "categories", categoryID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("category", categoryID)
		}
		if nomineeID != nil {
			member, err := isMember(ctx, tx, categoryID, *nomineeID)
			if err != nil {
				return err
			}
			if !member {
				return errNomineeNotInCategory
			}
		}
		_, err = qExec(ctx, tx, psql.Update("categories").
			Set("winner_nominee_id", nomineeID).
			Where(sq.Eq{"id": categoryID}))
		return err
	})
}

func isMember(ctx context.Context, tx pgx.Tx, categoryID, nomineeID int) (bool, error) {
	var one int
	err := qRow(ctx, tx, psql.Select("1").
		From("category_nominees").
		Where(sq.Eq{"category_id": categoryID, "nominee_id": nomineeID}).
		Suffix("FOR SHARE"),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ---------- Guesses ----------

var guessColumns = []string{"id", "user_id", "category_id", "nominee_id", "created_at", "updated_at"}

func scanGuess(row pgx.Row) (Guess, error) {
	var g Guess
	err := row.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.NomineeID, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *PGStore) UpsertGuess(ctx context.Context, userID, categoryID, nomineeID int) (Guess, error) {
	var out Guess
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var one int
		err := qRow(ctx, tx, psql.Select("1").From("categories").
			Where(sq.Eq{"id": categoryID}).Suffix("FOR SHARE")).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("category", categoryID)
		}
		if err != nil {
			return err
		}
		err = qRow(ctx, tx, psql.Select("1").From("nominees").
			Where(sq.Eq{"id": nomineeID}).Suffix("FOR SHARE")).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("nominee", nomineeID)
		}
		if err != nil {
			return err
		}
		member, err := isMember(ctx, tx, categoryID, nomineeID)
		if err != nil {
			return err
		}
		if !member {
			return errNomineeNotInCategory
		}
		out, err = scanGuess(qRow(ctx, tx, psql.Insert("guesses").
			Columns("user_id", "category_id", "nominee_id").
			Values(userID, categoryID, nomineeID).
			Suffix(`ON CONFLICT (user_id, category_id) DO UPDATE
				SET nominee_id = EXCLUDED.nominee_id, updated_at = NOW()
				RETURNING id, user_id, category_id, nominee_id, created_at, updated_at`)))
		if isForeignKeyViolation(err) {
			return notFound("user", userID)
		}
		return err
	})
	return out, err
}

func (s *PGStore) GetGuess(ctx context.Context, userID, categoryID int) (*Guess, error) {
	g, err := scanGuess(qRow(ctx, s.db, psql.Select(guessColumns...).From("guesses").
		Where(sq.Eq{"user_id": userID, "category_id": categoryID})))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PGStore) GuessesByUser(ctx context.Context, userID int) ([]Guess, error) {
	return s.queryGuesses(ctx, sq.Eq{"user_id": userID})
}

func (s *PGStore) GuessesByCategory(ctx context.Context, categoryID int) ([]Guess, error) {
	return s.queryGuesses(ctx, sq.Eq{"category_id": categoryID})
}

func (s *PGStore) ListGuesses(ctx context.Context) ([]Guess, error) {
	return s.queryGuesses(ctx, nil)
}

func (s *PGStore) queryGuesses(ctx context.Context, where sq.Sqlizer) ([]Guess, error) {
	q := psql.Select(guessColumns...).From("guesses").OrderBy("id ASC")
	if where != nil {
		q = q.Where(where)
	}
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Guess{}
	for rows.Next() {
		g, err := scanGuess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ---------- Users ----------

func (s *PGStore) InsertUser(ctx context.Context, username, passHash string) (User, error) {
	u := User{Username: username}
	err := qRow(ctx, s.db, psql.Insert("users").
		Columns("username", "pass_hash").
		Values(username, passHash).
		Suffix("RETURNING id"),
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("%w: username already exists", ErrConflict)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PGStore) UserByName(ctx context.Context, username string) (User, string, error) {
	var u User
	var hash string
	err := qRow(ctx, s.db, psql.Select("id", "username", "pass_hash").From("users").
		Where(sq.Expr("lower(username) = lower(?)", username)),
	).Scan(&u.ID, &u.Username, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, "", fmt.Errorf("%w: user %q not found", ErrNotFound, username)
	}
	if err != nil {
		return User{}, "", err
	}
	return u, hash, nil
}

func (s *PGStore) UserByID(ctx context.Context, id int) (User, error) {
	var u User
	err := qRow(ctx, s.db, psql.Select("id", "username").From("users").Where(sq.Eq{"id": id})).
		Scan(&u.ID, &u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFound("user", id)
	}
	return u, err
}

func (s *PGStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := qQuery(ctx, s.db, psql.Select("id", "username").From("users").OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStore) EnsureRole(ctx context.Context, role string) error {
	_, err := qExec(ctx, s.db, psql.Insert("roles").Columns("name").Values(role).Suffix("ON CONFLICT DO NOTHING"))
	return err
}

func (s *PGStore) AddUserRole(ctx context.Context, userID int, role string) error {
	_, err := qExec(ctx, s.db, psql.Insert("user_roles").
		Columns("user_id", "role").
		Values(userID, role).
		Suffix("ON CONFLICT DO NOTHING"))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: user %d or role %q does not exist", ErrNotFound, userID, role)
	}
	return err
}

func (s *PGStore) UserRoles(ctx context.Context, userID int) ([]string, error) {
	rows, err := qQuery(ctx, s.db, psql.Select("role").From("user_roles").
		Where(sq.Eq{"user_id": userID}).OrderBy("role ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------- Audit ----------

func (s *PGStore) LogAction(ctx context.Context, actorID *int, action, details string) error {
	_, err := qExec(ctx, s.db, psql.Insert("logs").
		Columns("actor_id", "action", "details").
		Values(actorID, action, details))
	return err
}

func (s *PGStore) ListLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	q := psql.Select("l.id", "l.created_at", "COALESCE(u.username,'(deleted)')", "l.action", "l.details").
		From("logs l").
		LeftJoin("users u ON u.id = l.actor_id").
		OrderBy("l.id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Actor, &e.Action, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
