package handlers

import (
	"errors"
	"net/http"

	"pulso-backend/internal/models"
	"pulso-backend/internal/reminders"
	"pulso-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	reminders repository.ReminderStore
	timer     *reminders.Timer
	log       *zap.SugaredLogger
}

// NewReminderHandler wires the store. timer may be nil; when set, every
// change re-syncs the user's list into it.
func NewReminderHandler(store repository.ReminderStore, timer *reminders.Timer, log *zap.SugaredLogger) *ReminderHandler {
	return &ReminderHandler{reminders: store, timer: timer, log: log}
}

// --- GET /api/reminders ---

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.reminders.ListByUser(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.log, "listing reminders", err)
		return
	}
	if list == nil {
		list = []models.Reminder{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reminders": list})
}

// --- POST /api/reminders ---

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req reminders.CreateInput
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	reminder, err := reminders.New(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reminder.UserID = userID

	if err := h.reminders.Create(r.Context(), &reminder); err != nil {
		if errors.Is(err, repository.ErrDuplicateReminder) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, h.log, "creating reminder", err)
		return
	}

	h.sync(r, userID)
	writeJSON(w, http.StatusCreated, reminder)
}

// --- PATCH /api/reminders/{id} ---

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var patch reminders.Patch
	if !decodeJSON(w, r, maxBodyBytes, &patch) {
		return
	}

	existing, err := h.reminders.FindByID(r.Context(), userID, id)
	if err != nil {
		internalError(w, r, h.log, "finding reminder", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	updated, err := reminders.ApplyPatch(*existing, patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reminders.Update(r.Context(), &updated); err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		internalError(w, r, h.log, "updating reminder", err)
		return
	}

	h.sync(r, userID)
	writeJSON(w, http.StatusOK, updated)
}

// --- DELETE /api/reminders/{id} ---

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.reminders.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		internalError(w, r, h.log, "deleting reminder", err)
		return
	}

	h.sync(r, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "reminder deleted"})
}

func (h *ReminderHandler) sync(r *http.Request, userID bson.ObjectID) {
	if h.timer == nil {
		return
	}
	list, err := h.reminders.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Warnw("syncing reminder timer", "user_id", userID.Hex(), "error", err)
		return
	}
	h.timer.Set(userID.Hex(), list)
}
