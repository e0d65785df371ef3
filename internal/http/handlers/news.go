package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/domain/news"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type NewsFeed interface {
	Create(ctx context.Context, req news.CreateRequest) (news.Item, error)
	List(ctx context.Context, filter news.ListFilter) ([]news.Item, error)
}

type NewsHandler struct {
	news NewsFeed
}

func NewNewsHandler(feed NewsFeed) *NewsHandler {
	return &NewsHandler{news: feed}
}

// Home lists news newest first for any signed-in user.
func (h *NewsHandler) Home(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	items, err := h.news.List(cctx, news.ListFilter{})
	if err != nil {
		RespondInternal(ctx, "Could not load news")
		return
	}

	payload := gin.H{"news": items}
	if sess, ok := middlewares.SessionFromContext(ctx); ok {
		payload["user"] = gin.H{"name": sess.Name, "role": sess.Role}
	}

	RespondJSONWithETag(ctx, http.StatusOK, withFlash(ctx, payload))
}

func (h *NewsHandler) Create(ctx *gin.Context) {
	var req news.CreateRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, middlewares.HomePath, middlewares.FlashWarning, "Please fill all fields")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if _, err := h.news.Create(cctx, req); err != nil {
		RespondInternal(ctx, "Could not post news")
		return
	}

	redirectWithFlash(ctx, middlewares.HomePath, middlewares.FlashSuccess, "News posted successfully!")
}
