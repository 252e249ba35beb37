package internal

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type categoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type nomineeRequest struct {
	Name       string  `json:"name" binding:"required"`
	SmallImage *string `json:"small_image_url"`
	LargeImage *string `json:"large_image_url"`
}

var nameMessages = bindMessages{"Name": {"required": "name is required"}}

// ------------------- Visibility -------------------

func Visibility(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, VisibilityPayload{Locked: a.Gate.Status()})
	}
}

func AdminToggleVisibility(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		locked := a.Gate.Toggle()
		a.Logger.Info("visibility toggled", "locked", locked, "actor", username(c))
		a.logActor(c, "admin_toggle_visibility", "locked="+strconv.FormatBool(locked))
		c.JSON(http.StatusOK, VisibilityPayload{Locked: locked})
	}
}

// ------------------- Catalog (public) -------------------

func ListCategories(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := a.Catalog.Categories(c.Request.Context())
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, cats)
	}
}

func GetCategory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		cat, err := a.Catalog.Category(c.Request.Context(), id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func ListNominees(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		nominees, err := a.Catalog.Nominees(c.Request.Context())
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, nominees)
	}
}

func GetNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		n, err := a.Catalog.Nominee(c.Request.Context(), id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

// ------------------- Guesses -------------------

func MyGuesses(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := a.Guesses.MyGuesses(c.Request.Context(), uid(c))
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func MyGuess(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		out, err := a.Guesses.MyGuess(c.Request.Context(), uid(c), id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func SubmitGuess(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		var req struct {
			NomineeID int `json:"nominee_id" binding:"required,min=1"`
		}
		if !bindJSON(c, &req, bindMessages{"NomineeID": {"required": "nominee_id is required", "min": "nominee_id is required"}}, "") {
			return
		}
		g, err := a.Guesses.Submit(c.Request.Context(), uid(c), id, req.NomineeID)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "guess", idDetail("category_id", id)+" "+idDetail("nominee_id", req.NomineeID))
		c.JSON(http.StatusOK, g)
	}
}

// CategoryGuesses lists every guess cast in a category.
func CategoryGuesses(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		out, err := a.Guesses.GuessesForCategory(c.Request.Context(), id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func UserGuesses(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri usernameURI
		if !bindURI(c, &uri) {
			return
		}
		out, err := a.Guesses.GuessesForUser(c.Request.Context(), uri.Username)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ------------------- Scores -------------------

func MyScore(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		score, err := a.Scoring.ScoreForUser(c.Request.Context(), uid(c))
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": uid(c), "username": username(c), "score": score})
	}
}

// Leaderboard lists every user with a score, zero included.
func Leaderboard(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := a.Scoring.Leaderboard(c.Request.Context())
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ------------------- Admin: categories -------------------

func AdminCreateCategory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryRequest
		if !bindJSON(c, &req, nameMessages, "") {
			return
		}
		cat, err := a.Catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_create_category", idDetail("category_id", cat.ID))
		c.JSON(http.StatusCreated, cat)
	}
}

func AdminUpdateCategory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		var req categoryRequest
		if !bindJSON(c, &req, nameMessages, "") {
			return
		}
		if err := a.Catalog.EditCategory(c.Request.Context(), id, req.Name, req.Description); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_update_category", idDetail("category_id", id))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func AdminDeleteCategory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		if err := a.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_delete_category", idDetail("category_id", id))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func AdminAddNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri categoryNomineeURI
		if !bindURI(c, &uri) {
			return
		}
		if err := a.Catalog.AddNomineeToCategory(c.Request.Context(), uri.ID, uri.NomineeID); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_add_nominee", idDetail("category_id", uri.ID)+" "+idDetail("nominee_id", uri.NomineeID))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// AdminSetWinner sets the winner; a null nominee_id clears it.
func AdminSetWinner(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		var req struct {
			NomineeID *int `json:"nominee_id"`
		}
		if !bindJSON(c, &req, nil, "bad request") {
			return
		}
		if err := a.Catalog.SetCategoryWinner(c.Request.Context(), id, req.NomineeID); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		details := idDetail("category_id", id) + " winner=none"
		if req.NomineeID != nil {
			details = idDetail("category_id", id) + " " + idDetail("winner", *req.NomineeID)
		}
		a.logActor(c, "admin_set_winner", details)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func AdminClearWinner(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		if err := a.Catalog.SetCategoryWinner(c.Request.Context(), id, nil); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_set_winner", idDetail("category_id", id)+" winner=none")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// ------------------- Admin: nominees -------------------

func AdminCreateNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req nomineeRequest
		if !bindJSON(c, &req, nameMessages, "") {
			return
		}
		n, err := a.Catalog.CreateNominee(c.Request.Context(), req.Name, req.SmallImage, req.LargeImage)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_create_nominee", idDetail("nominee_id", n.ID))
		c.JSON(http.StatusCreated, n)
	}
}

func AdminUpdateNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		var req nomineeRequest
		if !bindJSON(c, &req, nameMessages, "") {
			return
		}
		if err := a.Catalog.EditNominee(c.Request.Context(), id, req.Name, req.SmallImage, req.LargeImage); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_update_nominee", idDetail("nominee_id", id))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func AdminDeleteNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		if err := a.Catalog.DeleteNominee(c.Request.Context(), id); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_delete_nominee", idDetail("nominee_id", id))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// AdminDetachNominee removes a nominee from every category it belongs to.
func AdminDetachNominee(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		if err := a.Catalog.RemoveNomineeEverywhere(c.Request.Context(), id); err != nil {
			writeError(c, a.Logger, err)
			return
		}
		a.logActor(c, "admin_detach_nominee", idDetail("nominee_id", id))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// ------------------- Admin: logs/users/stats -------------------

func AdminLogs(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := a.Store.ListLogs(c.Request.Context(), 200)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func AdminUsers(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		users, err := a.Identity.ListUsers(ctx)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		scores, err := a.Scoring.Scores(ctx)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}

		type row struct {
			ID       int      `json:"id"`
			Username string   `json:"username"`
			Roles    []string `json:"roles"`
			Score    int      `json:"score"`
		}
		out := make([]row, 0, len(users))
		for _, u := range users {
			roles, err := a.Identity.GetRoles(ctx, u)
			if err != nil {
				writeError(c, a.Logger, err)
				return
			}
			out = append(out, row{ID: u.ID, Username: u.Username, Roles: roles, Score: scores[u.ID]})
		}
		c.JSON(http.StatusOK, out)
	}
}

func AdminStats(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := a.Scoring.CategoryStats(c.Request.Context())
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ------------------- Admin: report (text) -------------------

func AdminCategoryReport(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		cat, err := a.Catalog.Category(ctx, id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		guesses, err := a.Guesses.GuessesForCategory(ctx, id)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		users, err := a.Identity.ListUsers(ctx)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": categoryReport(cat, guesses, users)})
	}
}

func categoryReport(cat Category, guesses []Guess, users []User) string {
	names := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	voters := map[int][]string{}
	for _, g := range guesses {
		name, ok := names[g.UserID]
		if !ok {
			name = "id=" + strconv.Itoa(g.UserID)
		}
		voters[g.NomineeID] = append(voters[g.NomineeID], name)
	}

	winner := "not set"
	if w := cat.Winner(); w != nil {
		winner = w.Name + " (id=" + strconv.Itoa(w.ID) + ")"
	}

	var b strings.Builder
	b.WriteString("CATEGORY REPORT\n")
	b.WriteString("Category: #" + strconv.Itoa(cat.ID) + " " + cat.Name + "\n")
	if cat.Description != nil {
		b.WriteString("Description: " + *cat.Description + "\n")
	}
	b.WriteString("Winner: " + winner + "\n")
	b.WriteString("Guesses: " + strconv.Itoa(len(guesses)) + "\n\n")

	b.WriteString("Nominees (" + strconv.Itoa(len(cat.Nominees)) + "):\n")
	if len(cat.Nominees) == 0 {
		b.WriteString("- none\n")
	}
	for _, n := range cat.Nominees {
		mark := ""
		if cat.WinnerID != nil && *cat.WinnerID == n.ID {
			mark = " [winner]"
		}
		b.WriteString("- " + n.Name + " (id=" + strconv.Itoa(n.ID) + ")" + mark + ", guesses: " + strconv.Itoa(len(voters[n.ID])) + "\n")
		for _, v := range voters[n.ID] {
			b.WriteString("  * " + v + "\n")
		}
	}
	return b.String()
}
