package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// DocsPath is where the swagger UI and doc.json are served.
const DocsPath = "/api-docs"

// MountDocs serves the registered swagger docs. guards run before the UI,
// typically middleware.SwaggerProtection.
func MountDocs(engine *gin.Engine, guards ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, guards...), ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET(DocsPath+"/*any", handlers...)
}
