package internal

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type authResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Warning  string   `json:"warning,omitempty"`
}

func Register(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username  string `json:"username" binding:"required"`
			Password  string `json:"password" binding:"required"`
			Password2 string `json:"password2" binding:"required"`
		}
		if !bindJSON(c, &req, nil, "fill all fields") {
			return
		}
		if req.Password != req.Password2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
			return
		}

		ctx := c.Request.Context()
		u, err := a.Identity.CreateUser(ctx, req.Username, req.Password)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}

		// A missing default role must not undo the registration.
		resp := authResponse{Username: u.Username}
		if err := a.Identity.AddToRole(ctx, u, RoleUser); err != nil {
			a.Logger.Warn("default role not assigned", "user_id", u.ID, "role", RoleUser, "error", err)
			resp.Warning = "default role not assigned"
		}
		roles, err := a.Identity.GetRoles(ctx, u)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		resp.Roles = roles
		if resp.Token, err = a.issueSession(c, u, roles); err != nil {
			writeError(c, a.Logger, err)
			return
		}

		a.logAction(ctx, &u.ID, "register", "user registered")
		c.JSON(http.StatusCreated, resp)
	}
}

func Login(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &req, nil, "fill all fields") {
			return
		}

		ctx := c.Request.Context()
		u, err := a.Identity.Authenticate(ctx, req.Username, req.Password)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		roles, err := a.Identity.GetRoles(ctx, u)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		token, err := a.issueSession(c, u, roles)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}

		a.logAction(ctx, &u.ID, "login", "success")
		c.JSON(http.StatusOK, authResponse{Token: token, Username: u.Username, Roles: roles})
	}
}

func Logout(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(cookieName, "", -1, "/", "", a.Cfg.CookieSecure, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func Me(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		u, err := a.Identity.FindUserByID(ctx, uid(c))
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		roles, err := a.Identity.GetRoles(ctx, u)
		if err != nil {
			writeError(c, a.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username, "roles": roles})
	}
}

// issueSession signs a token for u and mirrors it into the session cookie.
func (a *App) issueSession(c *gin.Context, u User, roles []string) (string, error) {
	token, err := a.Tokens.Issue(u, roles)
	if err != nil {
		return "", err
	}
	c.SetCookie(cookieName, token, int(a.Tokens.TTL().Seconds()), "/", "", a.Cfg.CookieSecure, true)
	return token, nil
}
