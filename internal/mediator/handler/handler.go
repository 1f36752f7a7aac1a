package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmodels "medgate/internal/auth/models"
	"medgate/internal/mediator"
	"medgate/internal/platform/middleware"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/platform/httputil"
	"medgate/pkg/requestcontext"
)

// Mediator is the request mediator as the HTTP layer sees it.
type Mediator interface {
	Handle(ctx context.Context, session *authmodels.Session, op mediator.Operation) (*mediator.Result, error)
	QueryAudit(ctx context.Context, session *authmodels.Session, filter audit.Filter) ([]audit.Entry, error)
	ExportPatients(ctx context.Context, session *authmodels.Session, w io.Writer) error
}

// Handler translates patient and audit routes into mediator operations. It
// makes no access decisions of its own.
type Handler struct {
	mediator Mediator
	logger   *slog.Logger
}

func New(m Mediator, logger *slog.Logger) *Handler {
	return &Handler{mediator: m, logger: logger}
}

// Register mounts the patient and audit routes behind requireAuth.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/patients", h.handleListPatients)
		r.Post("/patients", h.handleAddPatient)
		r.Get("/patients/export", h.handleExport)
		r.Put("/patients/{id}", h.handleUpdatePatient)
		r.Delete("/patients/{id}", h.handleDeletePatient)
		r.Get("/audit", h.handleListAudit)
	})
}

type patientRequest struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Diagnosis string `json:"diagnosis"`
}

type patientListResponse struct {
	View     string                 `json:"view"`
	Patients []mediator.PatientView `json:"patients"`
}

type auditEntryResponse struct {
	ID          int64     `json:"log_id"`
	ActorUserID int64     `json:"user_id"`
	ActorRole   string    `json:"role"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details"`
}

type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, ok := h.handle(w, r, mediator.ListPatients{Diagnosis: q.Get("diagnosis"), Search: q.Get("q")})
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patientListResponse{View: res.Decision.String(), Patients: res.Patients})
}

func (h *Handler) handleAddPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, ok := h.handle(w, r, mediator.AddPatient{Name: req.Name, Contact: req.Contact, Diagnosis: req.Diagnosis})
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res.Patient)
}

func (h *Handler) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePatientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req patientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, ok := h.handle(w, r, mediator.UpdatePatient{ID: id, Name: req.Name, Contact: req.Contact, Diagnosis: req.Diagnosis})
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res.Patient)
}

func (h *Handler) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePatientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, ok := h.handle(w, r, mediator.DeletePatient{ID: id}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.mediator.ExportPatients(ctx, session, &buf); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="patients.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{ActionContains: q.Get("action")}
	if raw := q.Get("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Role = &role
	}

	entries, err := h.mediator.QueryAudit(ctx, session, filter)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	resp := auditListResponse{Entries: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, auditEntryResponse{
			ID:          int64(e.ID),
			ActorUserID: int64(e.ActorUserID),
			ActorRole:   e.ActorRole.String(),
			Action:      string(e.Action),
			Timestamp:   e.Timestamp,
			Details:     e.Details,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op mediator.Operation) (*mediator.Result, bool) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	res, err := h.mediator.Handle(ctx, session, op)
	if err != nil {
		h.writeError(ctx, w, err)
		return nil, false
	}
	return res, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*authmodels.Session, bool) {
	ctx := r.Context()
	session := middleware.SessionFrom(ctx)
	if session == nil {
		h.logger.ErrorContext(ctx, "session missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return nil, false
	}
	return session, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
