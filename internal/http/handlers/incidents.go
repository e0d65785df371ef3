package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/domain/incident"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/geocoder89/crimewatch/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	reportIncidentPath    = "/incident/report_incident"
	reportedIncidentsPath = "/incident/reported_incidents"
)

type IncidentLog interface {
	Create(ctx context.Context, req incident.ReportRequest, reporter string) (incident.Incident, error)
	List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, error)
	UpdateStatus(ctx context.Context, id string, upd incident.StatusUpdate) (incident.Incident, error)
	Count(ctx context.Context, filter incident.ListFilter) (int, error)
}

type IncidentsHandler struct {
	incidents IncidentLog
}

func NewIncidentsHandler(incidents IncidentLog) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents}
}

func (h *IncidentsHandler) Report(ctx *gin.Context) {
	var req incident.ReportRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, reportIncidentPath, middlewares.FlashWarning, "Please provide all fields.")
		return
	}

	reporter := ""
	if sess, ok := middlewares.SessionFromContext(ctx); ok {
		reporter = sess.Name
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if _, err := h.incidents.Create(cctx, req, reporter); err != nil {
		RespondInternal(ctx, "Could not report incident")
		return
	}

	redirectWithFlash(ctx, reportedIncidentsPath, middlewares.FlashSuccess, "Incident reported successfully!")
}

func (h *IncidentsHandler) Reported(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	items, err := h.incidents.List(cctx, incident.ListFilter{})
	if err != nil {
		RespondInternal(ctx, "Could not load incidents")
		return
	}

	ctx.JSON(http.StatusOK, withFlash(ctx, gin.H{"incidents": items}))
}

func (h *IncidentsHandler) Dashboard(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	items, err := h.incidents.List(cctx, incident.ListFilter{})
	if err != nil {
		RespondInternal(ctx, "Could not load incidents")
		return
	}

	reported := incident.StatusReported
	confirmed := incident.StatusTrue

	reportedCount, err := h.incidents.Count(cctx, incident.ListFilter{Status: &reported})
	if err != nil {
		RespondInternal(ctx, "Could not load incidents")
		return
	}
	trueCount, err := h.incidents.Count(cctx, incident.ListFilter{Status: &confirmed})
	if err != nil {
		RespondInternal(ctx, "Could not load incidents")
		return
	}

	ctx.JSON(http.StatusOK, withFlash(ctx, gin.H{
		"incidents":     items,
		"reportedCount": reportedCount,
		"trueCount":     trueCount,
	}))
}

// UpdateStatus is called from page scripts, so it answers in JSON.
func (h *IncidentsHandler) UpdateStatus(ctx *gin.Context) {
	var req incident.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Incident not found"})
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	upd := incident.NewStatusUpdate(incident.Status(req.Status), req.ActionsTaken)

	if _, err := h.incidents.UpdateStatus(cctx, id, upd); err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Incident not found"})
			return
		}
		RespondInternal(ctx, "Could not update incident")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":       true,
		"new_status":    req.Status,
		"actions_taken": req.ActionsTaken,
	})
}

func (h *IncidentsHandler) Resolve(ctx *gin.Context) {
	var req incident.ResolveRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, reportedIncidentsPath, middlewares.FlashWarning, "Please describe the actions taken.")
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		redirectWithFlash(ctx, reportedIncidentsPath, middlewares.FlashWarning, "Incident not found.")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	upd := incident.NewStatusUpdate(incident.StatusResolved, req.ActionsTaken)

	if _, err := h.incidents.UpdateStatus(cctx, id, upd); err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			redirectWithFlash(ctx, reportedIncidentsPath, middlewares.FlashWarning, "Incident not found.")
			return
		}
		RespondInternal(ctx, "Could not resolve incident")
		return
	}

	redirectWithFlash(ctx, reportedIncidentsPath, middlewares.FlashSuccess, "Incident marked as resolved with actions.")
}
