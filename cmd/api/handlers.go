package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/lifecycle"
	"github.com/venkat-budati/medconnect/internal/models"
	"github.com/venkat-budati/medconnect/internal/ranker"
	"github.com/venkat-budati/medconnect/internal/store"
)

type server struct {
	db        *sql.DB
	logger    *slog.Logger
	lifecycle *lifecycle.Service
	ranker    *ranker.Ranker
}

func (s *server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Name and email are required")
		return
	}

	user, err := store.CreateUser(r.Context(), s.db, req.Name, req.Email, req.Phone, req.Address, req.City)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			respondError(w, http.StatusConflict, "Email already registered")
			return
		}
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := store.GetUser(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *server) handleCreateMedicine(w http.ResponseWriter, r *http.Request) {
	donorID := userIDFrom(r.Context())

	var req struct {
		Name      string `json:"name"`
		Category  string `json:"category"`
		Unit      string `json:"unit"`
		Quantity  int    `json:"quantity"`
		Expiry    string `json:"expiry"`
		Condition string `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Category == "" || req.Unit == "" || req.Expiry == "" {
		respondError(w, http.StatusBadRequest, "Name, category, unit and expiry are required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}
	if !oneOf(req.Category, models.MedicineCategories) {
		respondError(w, http.StatusBadRequest, "Unknown category")
		return
	}
	if !oneOf(req.Unit, models.MedicineUnits) {
		respondError(w, http.StatusBadRequest, "Unknown unit")
		return
	}
	if req.Condition != "" && !oneOf(req.Condition, models.MedicineConditions) {
		respondError(w, http.StatusBadRequest, "Unknown condition")
		return
	}

	// Snapshot the donor's profile address as the pickup location; later
	// profile edits must not move existing listings.
	donor, err := store.GetUser(r.Context(), s.db, donorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	medicine, err := store.CreateMedicine(r.Context(), s.db, store.CreateMedicineRequest{
		DonorID:       donorID,
		Name:          req.Name,
		Category:      req.Category,
		Unit:          req.Unit,
		Quantity:      req.Quantity,
		Expiry:        req.Expiry,
		Condition:     req.Condition,
		PickupAddress: donor.Address,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, medicine)
}

func (s *server) handleGetMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	medicine, err := store.GetMedicine(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, medicine)
}

func (s *server) handleMyMedicines(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := store.ListMedicinesByDonor(r.Context(), s.db, userIDFrom(r.Context()), page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleDeleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	if err := store.DeleteMedicine(r.Context(), s.db, id, userIDFrom(r.Context())); err != nil {
		s.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := userIDFrom(ctx)

	candidates, err := store.ListMedicines(ctx, s.db, store.ListMedicinesFilter{
		Category:     r.URL.Query().Get("category"),
		Search:       r.URL.Query().Get("q"),
		ExcludeDonor: viewerID,
		OnlyListable: true,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	viewer, err := store.GetUser(ctx, s.db, viewerID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	maxKm, _ := strconv.ParseFloat(r.URL.Query().Get("max_km"), 64)
	listings := s.ranker.Rank(ctx, viewer.Address, candidates, ranker.Options{
		Sort:  ranker.ParseSortKey(r.URL.Query().Get("sort")),
		MaxKm: maxKm,
	})

	respondJSON(w, http.StatusOK, map[string]any{"items": listings, "count": len(listings)})
}

func (s *server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MedicineID int64  `json:"medicine_id"`
		Quantity   int    `json:"quantity"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := s.lifecycle.Create(r.Context(), lifecycle.CreateRequestInput{
		MedicineID:  req.MedicineID,
		RequesterID: userIDFrom(r.Context()),
		Quantity:    req.Quantity,
		Message:     req.Message,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, request)
}

func (s *server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	userID := userIDFrom(r.Context())

	var result *store.OffsetPage
	var err error
	if r.URL.Query().Get("role") == "donor" {
		result, err = store.ListRequestsByDonor(r.Context(), s.db, userID, page, pageSize)
	} else {
		result, err = store.ListRequestsByRequester(r.Context(), s.db, userID, page, pageSize)
	}
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type transitionBody struct {
	Response string `json:"response"`
	Reason   string `json:"reason"`
}

func (s *server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(id, actor int64, body transitionBody) (any, error) {
		return s.lifecycle.Accept(r.Context(), id, actor, body.Response)
	})
}

func (s *server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(id, actor int64, body transitionBody) (any, error) {
		return s.lifecycle.Reject(r.Context(), id, actor, body.Response)
	})
}

func (s *server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(id, actor int64, body transitionBody) (any, error) {
		return s.lifecycle.Cancel(r.Context(), id, actor)
	})
}

func (s *server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(id, actor int64, body transitionBody) (any, error) {
		return s.lifecycle.Complete(r.Context(), id, actor)
	})
}

func (s *server) handleFailRequest(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(id, actor int64, body transitionBody) (any, error) {
		return s.lifecycle.Fail(r.Context(), id, actor, body.Reason)
	})
}

func (s *server) handleTransition(w http.ResponseWriter, r *http.Request, fn func(id, actor int64, body transitionBody) (any, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var body transitionBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := fn(id, userIDFrom(r.Context()), body)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := store.ListNotifications(r.Context(), s.db, userIDFrom(r.Context()), page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := store.MarkNotificationRead(r.Context(), s.db, id, userIDFrom(r.Context())); err != nil {
		s.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetUserStats(r.Context(), s.db, userIDFrom(r.Context()))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// respondStoreError maps the failure taxonomy onto stable HTTP responses so
// clients can tell "try a smaller quantity" from "you're not allowed".
func (s *server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrMedicineNotFound),
		errors.Is(err, database.ErrRequestNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrUnauthorized):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInsufficientQuantity),
		errors.Is(err, database.ErrDuplicateRequest),
		errors.Is(err, database.ErrSelfRequest),
		errors.Is(err, database.ErrMedicineExpired),
		errors.Is(err, database.ErrMedicineInUse):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func oneOf(value string, allowed []string) bool {
	for _, v := range allowed {
		if value == v {
			return true
		}
	}
	return false
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
