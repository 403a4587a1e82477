package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/taskboard/taskboard/server/internal/tasks"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 100 << 10

// Task routes. Paths are fixed and unversioned.
const (
	PathList   = "/get-tasks"
	PathCreate = "/post-tasks"
	PathUpdate = "/update-tasks"
	PathDelete = "/delete-tasks"
	PathHealth = "/healthz"
)

// Handler is the HTTP handler for the task routes.
type Handler struct {
	svc *tasks.Service
	mux *http.ServeMux
}

// New creates a Handler wired to the given task service and registers all
// routes. Unknown paths get a JSON 404.
func New(svc *tasks.Service) http.Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux()}

	h.mux.HandleFunc(PathList, h.listTasks)
	h.mux.HandleFunc(PathCreate, h.createTask)
	h.mux.HandleFunc(PathUpdate, h.updateTask)
	h.mux.HandleFunc(PathDelete, h.deleteTask)
	h.mux.HandleFunc(PathHealth, h.health)
	h.mux.HandleFunc("/", h.notFound)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// listTasks returns GET /get-tasks: the full collection in stored order.
func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	c, err := h.svc.List(r.Context())
	if err != nil {
		serverErr(w, r, "Failed to read tasks", err)
		return
	}
	jsonResp(w, http.StatusOK, c)
}

// createTask handles POST /post-tasks: appends a task, responds 201 with it.
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var in tasks.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}

	task, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to create task", err)
		return
	}
	jsonResp(w, http.StatusCreated, task)
}

// updateTask handles PUT /update-tasks: rewrites the first task with
// currentTitle, responds 200 with the updated task.
func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}

	var in tasks.UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}

	task, err := h.svc.Update(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to update task", err)
		return
	}
	jsonResp(w, http.StatusOK, task)
}

// deleteTask handles DELETE /delete-tasks: removes every task with the
// title, responds 204 with no body.
func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}

	var in tasks.DeleteInput
	if !decodeBody(w, r, &in) {
		return
	}

	if _, err := h.svc.Delete(r.Context(), in); err != nil {
		h.fail(w, r, "Failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// health returns GET /healthz: liveness only, no storage access.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	jsonResp(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	jsonErr(w, http.StatusNotFound, "not found")
}

// fail maps a service error to its status code. Storage errors are logged
// and answered with the generic msg.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var ve *tasks.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonErr(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, tasks.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "Task not found")
	default:
		serverErr(w, r, msg, err)
	}
}

// --- helpers ----------------------------------------------------------------

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody decodes a JSON request body into v. An empty body leaves v at
// its zero value so field validation reports what is missing. It writes a
// 400 and returns false when the body is not valid JSON for v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	slog.Debug("api: rejected request body",
		"request_id", RequestID(r.Context()), "path", r.URL.Path, "err", err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	jsonErr(w, http.StatusBadRequest, "invalid request body")
	return false
}

func serverErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error("api: request failed",
		"request_id", RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	jsonErr(w, http.StatusInternalServerError, msg)
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
