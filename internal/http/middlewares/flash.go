package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const flashCookieName = "flash"

const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next page the browser reads.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func SetFlash(c *gin.Context, category, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, category+"|"+message, 60, "/", "", false, true)
}

// PopFlash reads and clears the pending flash message.
func PopFlash(c *gin.Context) (Flash, bool) {
	raw, err := c.Cookie(flashCookieName)
	if err != nil || raw == "" {
		return Flash{}, false
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)

	category, message, ok := strings.Cut(raw, "|")
	if !ok {
		return Flash{Category: FlashInfo, Message: raw}, true
	}
	return Flash{Category: category, Message: message}, true
}
