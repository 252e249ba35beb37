package internal

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type bindMessages map[string]map[string]string

type idURI struct {
	ID int `uri:"id" binding:"required,min=1"`
}

type categoryNomineeURI struct {
	ID        int `uri:"id" binding:"required,min=1"`
	NomineeID int `uri:"nomineeId" binding:"required,min=1"`
}

type usernameURI struct {
	Username string `uri:"username" binding:"required"`
}

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": resolveBindError(err, messages, fallback)})
		return false
	}
	return true
}

// bindURI answers 404 for path parameters that are not positive ids.
func bindURI(c *gin.Context, req any) bool {
	if err := c.ShouldBindUri(req); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return false
	}
	return true
}

func bindID(c *gin.Context) (int, bool) {
	var uri idURI
	if !bindURI(c, &uri) {
		return 0, false
	}
	return uri.ID, true
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "bad json"
}
