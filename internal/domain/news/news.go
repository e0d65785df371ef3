package news

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Item is a community news post. Items are immutable once published.
type Item struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Location  string    `json:"location" bson:"location"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"timestamp" bson:"timestamp"`
}

var ErrNotFound = errors.New("news item not found")

type CreateRequest struct {
	Title    string `form:"title" binding:"required,max=200"`
	Location string `form:"location" binding:"required,max=200"`
	Content  string `form:"content" binding:"required,max=5000"`
}

// ListFilter is newest-first unless Ascending is set. Limit <= 0 means no limit.
type ListFilter struct {
	Ascending bool
	Limit     int
}

func NewFromCreateRequest(req CreateRequest, now time.Time) Item {
	return Item{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Location:  req.Location,
		Content:   req.Content,
		CreatedAt: now,
	}
}
