package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pulso-backend/internal/appstate"
	"pulso-backend/internal/models"
	"pulso-backend/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type PremiumHandler struct {
	subscriptions repository.SubscriptionStore
	states        repository.StateStore
	log           *zap.SugaredLogger
}

func NewPremiumHandler(subscriptions repository.SubscriptionStore, states repository.StateStore, log *zap.SugaredLogger) *PremiumHandler {
	return &PremiumHandler{subscriptions: subscriptions, states: states, log: log}
}

type ActivateRequest struct {
	Plan string `json:"plan"`
}

type PremiumResponse struct {
	Plan        string     `json:"plan"`
	IsPremium   bool       `json:"isPremium"`
	Status      string     `json:"status"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	Features    []string   `json:"features"`
}

// --- GET /api/premium ---

func (h *PremiumHandler) GetPremium(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	sub, err := h.subscriptions.FindByUserID(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.log, "finding subscription", err)
		return
	}

	writeJSON(w, http.StatusOK, premiumResponse(sub))
}

// --- POST /api/premium/activate ---

// Activate switches the caller to plan (premium when omitted). There is no
// payment step.
func (h *PremiumHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ActivateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Plan == "" {
		req.Plan = models.PlanPremium
	}
	if !models.ValidPlan(req.Plan) {
		writeError(w, http.StatusBadRequest, "plan must be free or premium")
		return
	}

	now := time.Now()
	sub := &models.Subscription{
		UserID: userID,
		Plan:   req.Plan,
		Status: models.SubscriptionActive,
	}
	if req.Plan == models.PlanPremium {
		sub.ActivatedAt = &now
	}

	if err := h.subscriptions.Upsert(r.Context(), sub); err != nil {
		internalError(w, r, h.log, "saving subscription", err)
		return
	}
	if err := h.mirrorPlan(r, userID, req.Plan); err != nil {
		internalError(w, r, h.log, "mirroring plan into state", err)
		return
	}

	h.log.Infow("plan changed", "user_id", userID.Hex(), "plan", req.Plan)
	writeJSON(w, http.StatusOK, premiumResponse(sub))
}

// mirrorPlan writes plan into the user's state. A user who has never saved
// gets the default state first, so the partial update can't leave a document
// without sounds or collections behind.
func (h *PremiumHandler) mirrorPlan(r *http.Request, userID bson.ObjectID, plan string) error {
	existing, err := h.states.FindByUserID(r.Context(), userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.states.SetPlan(r.Context(), userID, plan)
	}

	state := appstate.Default()
	state.UserID = userID
	state.UserPlan = plan
	return h.states.Upsert(r.Context(), &state)
}

func premiumResponse(sub *models.Subscription) PremiumResponse {
	if sub == nil {
		return PremiumResponse{
			Plan:     models.PlanFree,
			Status:   models.SubscriptionInactive,
			Features: sub.Features(),
		}
	}
	return PremiumResponse{
		Plan:        sub.Plan,
		IsPremium:   sub.IsPremium(),
		Status:      sub.Status,
		ActivatedAt: sub.ActivatedAt,
		Features:    sub.Features(),
	}
}

// decodeOptional is decodeJSON for endpoints where an empty body is fine.
func decodeOptional(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
