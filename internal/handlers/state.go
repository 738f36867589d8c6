package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pulso-backend/internal/appstate"
	"pulso-backend/internal/models"
	"pulso-backend/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const maxStateBytes = 5 << 20 // 5MB, history grows with use

// stateBody shadows the server-owned fields so whatever the client sends
// for them is dropped before it can fail decoding.
type stateBody struct {
	models.State
	UserID   json.RawMessage `json:"userId"`
	UserPlan json.RawMessage `json:"userPlan"`
}

type StateHandler struct {
	states        repository.StateStore
	subscriptions repository.SubscriptionStore
	log           *zap.SugaredLogger
}

func NewStateHandler(states repository.StateStore, subscriptions repository.SubscriptionStore, log *zap.SugaredLogger) *StateHandler {
	return &StateHandler{states: states, subscriptions: subscriptions, log: log}
}

// --- GET /api/state ---

func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	state, err := h.states.FindByUserID(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.log, "finding state", err)
		return
	}

	var out models.State
	if state == nil {
		out = appstate.Default()
		out.UserID = userID
	} else {
		// documents written before a field existed decode with nil slices
		out, err = appstate.Normalize(*state)
		if err != nil {
			h.log.Warnw("stored state failed validation", "user_id", userID.Hex(), "error", err)
			out = *state
		}
	}

	plan, err := h.plan(r, userID)
	if err != nil {
		internalError(w, r, h.log, "finding subscription", err)
		return
	}
	out.UserPlan = plan

	writeJSON(w, http.StatusOK, out)
}

// --- PUT /api/state ---

// PutState replaces the whole document. userId and userPlan in the body are
// ignored; the plan always comes from the subscription.
func (h *StateHandler) PutState(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var body stateBody
	if !decodeJSON(w, r, maxStateBytes, &body) {
		return
	}

	state, err := appstate.Normalize(body.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.plan(r, userID)
	if err != nil {
		internalError(w, r, h.log, "finding subscription", err)
		return
	}
	state.UserID = userID
	state.UserPlan = plan

	if err := h.states.Upsert(r.Context(), &state); err != nil {
		internalError(w, r, h.log, "saving state", err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// --- POST /api/state/events ---

type EventResponse struct {
	State      models.State   `json:"state"`
	Suggestion *models.Action `json:"suggestion"`
}

// ApplyEvent runs one transition server-side against the stored state, for
// clients that don't carry the reducer themselves. Days are UTC.
func (h *StateHandler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var ev appstate.Event
	if !decodeJSON(w, r, maxBodyBytes, &ev) {
		return
	}

	stored, err := h.states.FindByUserID(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.log, "finding state", err)
		return
	}
	current := appstate.Default()
	if stored != nil {
		current = *stored
	}
	current, err = appstate.Normalize(current)
	if err != nil {
		internalError(w, r, h.log, "stored state failed validation", err)
		return
	}

	next, err := appstate.Apply(current, ev, time.Now().UTC())
	if err != nil {
		if isEventError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, h.log, "applying event", err)
		return
	}

	plan, err := h.plan(r, userID)
	if err != nil {
		internalError(w, r, h.log, "finding subscription", err)
		return
	}
	next.UserID = userID
	next.UserPlan = plan

	if err := h.states.Upsert(r.Context(), &next); err != nil {
		internalError(w, r, h.log, "saving state", err)
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{State: next, Suggestion: appstate.Suggest(next)})
}

func isEventError(err error) bool {
	for _, target := range []error{
		appstate.ErrInvalidEnergy,
		appstate.ErrUnknownAction,
		appstate.ErrInvalidVolume,
		appstate.ErrEmptyNote,
		appstate.ErrUnknownEvent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *StateHandler) plan(r *http.Request, userID bson.ObjectID) (string, error) {
	sub, err := h.subscriptions.FindByUserID(r.Context(), userID)
	if err != nil {
		return "", err
	}
	if sub.IsPremium() {
		return models.PlanPremium, nil
	}
	return models.PlanFree, nil
}
