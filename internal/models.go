package internal

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type Nominee struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	SmallImage  *string `json:"small_image_url,omitempty"`
	LargeImage  *string `json:"large_image_url,omitempty"`
	CategoryIDs []int   `json:"category_ids"`
}

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	WinnerID    *int      `json:"winner_id"`
	Nominees    []Nominee `json:"nominees"`
}

// HasNominee reports whether nomineeID is associated with the category.
func (c Category) HasNominee(nomineeID int) bool {
	for _, n := range c.Nominees {
		if n.ID == nomineeID {
			return true
		}
	}
	return false
}

// Winner returns the winning nominee, or nil when no winner is set.
func (c Category) Winner() *Nominee {
	if c.WinnerID == nil {
		return nil
	}
	for i := range c.Nominees {
		if c.Nominees[i].ID == *c.WinnerID {
			return &c.Nominees[i]
		}
	}
	return nil
}

type Guess struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	CategoryID int       `json:"category_id"`
	NomineeID  int       `json:"nominee_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryGuess pairs a category with one user's guess in it (nil when absent).
type CategoryGuess struct {
	Category
	Winner  *Nominee `json:"winner"`
	MyGuess *Guess   `json:"my_guess"`
}

type UserScore struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type CategoryStats struct {
	CategoryID int         `json:"category_id"`
	Name       string      `json:"name"`
	WinnerID   *int        `json:"winner_id"`
	Total      int         `json:"total"`
	Correct    int         `json:"correct"`
	PerNominee map[int]int `json:"per_nominee"`
}

type LogEntry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}
