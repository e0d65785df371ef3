package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Page answers a GET for a form page: it names the page and hands over any
// pending flash message. Rendering is left to the client.
func Page(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, withFlash(ctx, gin.H{"page": name}))
	}
}
