// ABOUTME: HTTP handlers for project notes.
// ABOUTME: Notes are readable by every project member; writes require MANAGER or LEAD.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

// noteBody is the JSON shape for one note.
type noteBody struct {
	NoteID    string `json:"note_id"`
	ProjectID string `json:"project_id"`
	Content   string `json:"content"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toNoteBody(n *store.Note) noteBody {
	return noteBody{
		NoteID:    n.ID.String(),
		ProjectID: n.ProjectID.String(),
		Content:   n.Content,
		CreatedBy: n.CreatedBy.String(),
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
}

// noteFromPath loads the note named by {note_id} within the request's
// project scope. Writes the error response and returns nil when missing.
func (srv *Server) noteFromPath(w http.ResponseWriter, r *http.Request) *store.Note {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	noteID, err := uuid.Parse(chi.URLParam(r, "note_id"))
	if err != nil {
		http.Error(w, "invalid note_id", http.StatusBadRequest)
		return nil
	}
	note, err := srv.store.GetNote(r.Context(), projectID, noteID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if note == nil {
		http.Error(w, "note not found", http.StatusNotFound)
		return nil
	}
	return note
}

// createNoteHandler handles POST /api/v1/projects/{project_id}/notes.
func (srv *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !srv.permit(w, r, authz.ResourceNote, authz.ActionCreate, nil) {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	note, err := srv.store.CreateNote(r.Context(), projectID, req.Content, user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "create note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toNoteBody(note))
}

// listNotesHandler handles GET /api/v1/projects/{project_id}/notes.
func (srv *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceNote, authz.ActionView, nil) {
		return
	}

	notes, err := srv.store.ListNotes(r.Context(), projectID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]noteBody, 0, len(notes))
	for i := range notes {
		out = append(out, toNoteBody(&notes[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getNoteHandler handles GET /api/v1/projects/{project_id}/notes/{note_id}.
func (srv *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	note := srv.noteFromPath(w, r)
	if note == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceNote, authz.ActionView, nil) {
		return
	}
	writeJSON(w, http.StatusOK, toNoteBody(note))
}

// updateNoteHandler handles PATCH /api/v1/projects/{project_id}/notes/{note_id}.
func (srv *Server) updateNoteHandler(w http.ResponseWriter, r *http.Request) {
	note := srv.noteFromPath(w, r)
	if note == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceNote, authz.ActionUpdate, nil) {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	updated, err := srv.store.UpdateNote(r.Context(), note.ProjectID, note.ID, req.Content)
	if err != nil {
		slog.ErrorContext(r.Context(), "update note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "note not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toNoteBody(updated))
}

// deleteNoteHandler handles DELETE /api/v1/projects/{project_id}/notes/{note_id}.
func (srv *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	note := srv.noteFromPath(w, r)
	if note == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceNote, authz.ActionDelete, nil) {
		return
	}

	deleted, err := srv.store.DeleteNote(r.Context(), note.ProjectID, note.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "note not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listMyNotesHandler handles GET /api/v1/me/notes.
// Returns notes created by the caller across all projects.
func (srv *Server) listMyNotesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notes, err := srv.store.ListNotesForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list my notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]noteBody, 0, len(notes))
	for i := range notes {
		out = append(out, toNoteBody(&notes[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
