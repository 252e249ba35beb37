package internal

import (
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Logger))

	r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)))
	r.GET("/openapi.json", OpenAPI())
	r.GET("/ws/visibility", VisibilitySocket(a))

	auth := Auth(a.Tokens)
	visible := RequireVisible(a.Gate)

	api := r.Group("/api")
	{
		api.POST("/auth/register", Register(a))
		api.POST("/auth/login", Login(a))
		api.POST("/auth/logout", Logout(a))
		api.GET("/me", auth, Me(a))

		api.GET("/visibility", Visibility(a))

		api.GET("/categories", ListCategories(a))
		api.GET("/categories/:id", GetCategory(a))
		api.GET("/categories/:id/guesses", visible, CategoryGuesses(a))
		api.GET("/categories/:id/my-guess", auth, MyGuess(a))
		api.PUT("/categories/:id/my-guess", auth, SubmitGuess(a))
		api.GET("/nominees", ListNominees(a))
		api.GET("/nominees/:id", GetNominee(a))

		api.GET("/my/guesses", auth, MyGuesses(a))
		api.GET("/my/score", auth, MyScore(a))

		// open to anyone, but only while guesses are locked
		api.GET("/users", visible, Leaderboard(a))
		api.GET("/users/:username/guesses", visible, UserGuesses(a))

		admin := api.Group("/admin", auth, RequireAdmin())
		{
			admin.POST("/visibility/toggle", AdminToggleVisibility(a))

			admin.POST("/categories", AdminCreateCategory(a))
			admin.PUT("/categories/:id", AdminUpdateCategory(a))
			admin.DELETE("/categories/:id", AdminDeleteCategory(a))
			admin.POST("/categories/:id/nominees/:nomineeId", AdminAddNominee(a))
			admin.PUT("/categories/:id/winner", AdminSetWinner(a))
			admin.DELETE("/categories/:id/winner", AdminClearWinner(a))
			admin.GET("/categories/:id/report", AdminCategoryReport(a))
			admin.GET("/categories/:id/guesses", CategoryGuesses(a))

			admin.POST("/nominees", AdminCreateNominee(a))
			admin.PUT("/nominees/:id", AdminUpdateNominee(a))
			admin.DELETE("/nominees/:id", AdminDeleteNominee(a))
			admin.DELETE("/nominees/:id/categories", AdminDetachNominee(a))

			admin.GET("/users", AdminUsers(a))
			admin.GET("/logs", AdminLogs(a))
			admin.GET("/stats", AdminStats(a))
		}
	}
	return r
}
