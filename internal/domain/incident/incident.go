package incident

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusReported Status = "reported"
	StatusTrue     Status = "true"
	StatusResolved Status = "resolved"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusReported, StatusTrue, StatusResolved:
		return true
	default:
		return false
	}
}

// AnonymousReporter is recorded when the reporting session carries no display name.
const AnonymousReporter = "Anonymous"

type Incident struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	Location     string    `json:"location" bson:"location"`
	Status       Status    `json:"status" bson:"status"`
	Reporter     string    `json:"reporter" bson:"reporter"`
	ActionsTaken string    `json:"actionsTaken,omitempty" bson:"actions_taken,omitempty"`
	CreatedAt    time.Time `json:"timestamp" bson:"timestamp"`
}

var ErrNotFound = errors.New("incident not found")

type ReportRequest struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"required,max=5000"`
	Location    string `form:"location" binding:"required,max=200"`
}

type UpdateStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=reported true resolved"`
	ActionsTaken string `json:"actions_taken" binding:"max=5000"`
}

type ResolveRequest struct {
	ActionsTaken string `form:"actions_taken" binding:"max=5000"`
}

// StatusUpdate changes the status and, when ActionsTaken is non-nil, the
// actions-taken note.
type StatusUpdate struct {
	Status       Status
	ActionsTaken *string
}

// NewStatusUpdate keeps the actions-taken note only for resolutions.
func NewStatusUpdate(status Status, actionsTaken string) StatusUpdate {
	u := StatusUpdate{Status: status}
	if status == StatusResolved {
		u.ActionsTaken = &actionsTaken
	}
	return u
}

// ListFilter is newest-first unless Ascending is set.
type ListFilter struct {
	Status    *Status
	Ascending bool
}

func NewFromReport(req ReportRequest, reporter string, now time.Time) Incident {
	if reporter == "" {
		reporter = AnonymousReporter
	}

	return Incident{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Status:      StatusReported,
		Reporter:    reporter,
		CreatedAt:   now,
	}
}
