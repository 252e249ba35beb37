package internal

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPIDoc string

// SwaggerInfo feeds the swagger UI served under /swagger/.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api",
	Title:            "Palpite API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  openAPIDoc,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

func OpenAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(openAPIDoc))
	}
}
