package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/service"
)

// NextRunProvider reports when the snapshot schedule fires next.
type NextRunProvider interface {
	NextRun() *time.Time
}

// SnapshotHandler handles theme snapshot endpoints.
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
	scheduler       NextRunProvider
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

// WithScheduler sets the scheduler used to report the next run.
func (h *SnapshotHandler) WithScheduler(scheduler NextRunProvider) *SnapshotHandler {
	h.scheduler = scheduler
	return h
}

// Register registers the snapshot routes with the Huma API.
func (h *SnapshotHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listThemeSnapshots",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/snapshots",
		Summary:     "List snapshots",
		Description: "Returns the stored snapshots of a theme, newest first",
		Tags:        []string{"Snapshots"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "createThemeSnapshot",
		Method:        "POST",
		Path:          "/api/v1/themes/{themeId}/snapshots",
		Summary:       "Create snapshot",
		Description:   "Resolves a theme and stores the resolved stylesheet",
		Tags:          []string{"Snapshots"},
		DefaultStatus: http.StatusCreated,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getSnapshotSchedule",
		Method:      "GET",
		Path:        "/api/v1/snapshots/schedule",
		Summary:     "Get snapshot schedule",
		Description: "Returns the snapshot schedule configuration and next run",
		Tags:        []string{"Snapshots"},
	}, h.GetSchedule)

	huma.Register(api, huma.Operation{
		OperationID: "getSnapshot",
		Method:      "GET",
		Path:        "/api/v1/snapshots/{snapshotId}",
		Summary:     "Get snapshot",
		Description: "Returns a snapshot including its stylesheet",
		Tags:        []string{"Snapshots"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteSnapshot",
		Method:        "DELETE",
		Path:          "/api/v1/snapshots/{snapshotId}",
		Summary:       "Delete snapshot",
		Tags:          []string{"Snapshots"},
		DefaultStatus: http.StatusNoContent,
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "pruneThemeSnapshots",
		Method:      "POST",
		Path:        "/api/v1/themes/{themeId}/snapshots/prune",
		Summary:     "Prune snapshots",
		Description: "Deletes all but the newest snapshots of a theme",
		Tags:        []string{"Snapshots"},
	}, h.Prune)
}

// RegisterChiRoutes registers the raw stylesheet route of a snapshot.
func (h *SnapshotHandler) RegisterChiRoutes(r chi.Router) {
	r.Get("/api/v1/snapshots/{snapshotId}.css", h.serveSnapshotCSS)
}

// ListSnapshotsInput is the input for listing snapshots.
type ListSnapshotsInput struct {
	ThemeID string `path:"themeId" doc:"Theme ID"`
	Limit   int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum snapshots to return, 0 for all"`
}

// ListSnapshotsOutput is the output for listing snapshots.
type ListSnapshotsOutput struct {
	Body struct {
		ThemeID   string                   `json:"theme_id"`
		Snapshots []models.SnapshotSummary `json:"snapshots"`
	}
}

// List returns the snapshots of a theme.
func (h *SnapshotHandler) List(ctx context.Context, input *ListSnapshotsInput) (*ListSnapshotsOutput, error) {
	snapshots, err := h.snapshotService.ListSnapshots(ctx, input.ThemeID, input.Limit)
	if err != nil {
		return nil, mapError("failed to list snapshots", err)
	}
	out := &ListSnapshotsOutput{}
	out.Body.ThemeID = input.ThemeID
	out.Body.Snapshots = snapshots
	return out, nil
}

// CreateSnapshotInput is the input for creating a snapshot.
type CreateSnapshotInput struct {
	ThemeID string `path:"themeId" doc:"Theme ID"`
	Body    struct {
		ColorFormat string `json:"color_format,omitempty" enum:"preserve,hex" doc:"How colors are written (default from config)"`
		Note        string `json:"note,omitempty" maxLength:"512" doc:"Free-form note"`
	}
}

// SnapshotOutput is the output for a single snapshot.
type SnapshotOutput struct {
	Body *models.ThemeSnapshot
}

// Create snapshots a theme.
func (h *SnapshotHandler) Create(ctx context.Context, input *CreateSnapshotInput) (*SnapshotOutput, error) {
	snapshot, err := h.snapshotService.CreateSnapshot(ctx, input.ThemeID, service.SnapshotOptions{
		ColorFormat: input.Body.ColorFormat,
		Trigger:     models.SnapshotTriggerManual,
		Note:        input.Body.Note,
	})
	if err != nil {
		return nil, mapError("failed to create snapshot", err)
	}
	return &SnapshotOutput{Body: snapshot}, nil
}

// SnapshotIDInput identifies a snapshot.
type SnapshotIDInput struct {
	SnapshotID string `path:"snapshotId" doc:"Snapshot ID (ULID)"`
}

// Get returns a snapshot.
func (h *SnapshotHandler) Get(ctx context.Context, input *SnapshotIDInput) (*SnapshotOutput, error) {
	snapshot, err := h.snapshotService.GetSnapshot(ctx, input.SnapshotID)
	if err != nil {
		return nil, mapError("snapshot not found", err)
	}
	return &SnapshotOutput{Body: snapshot}, nil
}

// DeleteSnapshotOutput is the (empty) output for deleting a snapshot.
type DeleteSnapshotOutput struct{}

// Delete removes a snapshot.
func (h *SnapshotHandler) Delete(ctx context.Context, input *SnapshotIDInput) (*DeleteSnapshotOutput, error) {
	if err := h.snapshotService.DeleteSnapshot(ctx, input.SnapshotID); err != nil {
		return nil, mapError("failed to delete snapshot", err)
	}
	return &DeleteSnapshotOutput{}, nil
}

// PruneSnapshotsInput is the input for pruning snapshots.
type PruneSnapshotsInput struct {
	ThemeID string `path:"themeId" doc:"Theme ID"`
	Keep    int    `query:"keep" minimum:"0" doc:"Snapshots to keep, 0 for the configured retention"`
}

// PruneSnapshotsOutput is the output for pruning snapshots.
type PruneSnapshotsOutput struct {
	Body struct {
		ThemeID string `json:"theme_id"`
		Deleted int64  `json:"deleted"`
	}
}

// Prune deletes old snapshots of a theme.
func (h *SnapshotHandler) Prune(ctx context.Context, input *PruneSnapshotsInput) (*PruneSnapshotsOutput, error) {
	if err := service.ValidateThemeID(input.ThemeID); err != nil {
		return nil, mapError("invalid theme id", err)
	}
	deleted, err := h.snapshotService.PruneSnapshots(ctx, input.ThemeID, input.Keep)
	if err != nil {
		return nil, mapError("failed to prune snapshots", err)
	}
	out := &PruneSnapshotsOutput{}
	out.Body.ThemeID = input.ThemeID
	out.Body.Deleted = deleted
	return out, nil
}

// GetScheduleInput is the input for the schedule endpoint.
type GetScheduleInput struct{}

// GetScheduleOutput is the output for the schedule endpoint.
type GetScheduleOutput struct {
	Body models.SnapshotScheduleInfo
}

// GetSchedule returns the snapshot schedule.
func (h *SnapshotHandler) GetSchedule(ctx context.Context, input *GetScheduleInput) (*GetScheduleOutput, error) {
	info := h.snapshotService.GetScheduleInfo()
	if h.scheduler != nil {
		info.NextRun = h.scheduler.NextRun()
	}
	return &GetScheduleOutput{Body: info}, nil
}

// serveSnapshotCSS serves the stored stylesheet of a snapshot. Snapshots
// are immutable, so the checksum is a strong ETag.
func (h *SnapshotHandler) serveSnapshotCSS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "snapshotId"), ".css")

	snapshot, err := h.snapshotService.GetSnapshot(r.Context(), id)
	if err != nil {
		writeCSSError(w, err)
		return
	}

	etag := fmt.Sprintf(`"%s"`, snapshot.Checksum)
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(snapshot.CSS)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(snapshot.CSS))
}
