package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/staffmatch/internal/readapi/service"
)

// HTTP exposes the projection read endpoints.
type HTTP struct {
	svc *service.Service
}

// NewHTTP constructs a handler.
func NewHTTP(svc *service.Service) *HTTP {
	return &HTTP{svc: svc}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Get("/v1/carers/{carerID}/shifts", h.eligibleShifts)
	r.Get("/v1/carers/{carerID}/shifts/count", h.eligibleShiftsCount)
	r.Get("/v1/carers/{carerID}/shifts/{bookingID}", h.eligibility)
	r.Get("/v1/shifts/{bookingID}/carers", h.eligibleCarers)
	r.Get("/v1/shifts/{bookingID}/carers/count", h.eligibleCarersCount)
	return r
}

func (h *HTTP) eligibleShifts(w http.ResponseWriter, r *http.Request) {
	carerID, err := uuid.Parse(chi.URLParam(r, "carerID"))
	if err != nil {
		http.Error(w, "invalid carer id", http.StatusBadRequest)
		return
	}
	shifts, err := h.svc.FilterShifts(r.Context(), carerID, service.ShiftFilter{
		Location:      r.URL.Query().Get("location"),
		MaxDistanceKM: parseQueryFloat(r, "max_distance_km"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

func (h *HTTP) eligibleShiftsCount(w http.ResponseWriter, r *http.Request) {
	carerID, err := uuid.Parse(chi.URLParam(r, "carerID"))
	if err != nil {
		http.Error(w, "invalid carer id", http.StatusBadRequest)
		return
	}
	shifts, err := h.svc.EligibleShifts(r.Context(), carerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(shifts)})
}

func (h *HTTP) eligibility(w http.ResponseWriter, r *http.Request) {
	carerID, err := uuid.Parse(chi.URLParam(r, "carerID"))
	if err != nil {
		http.Error(w, "invalid carer id", http.StatusBadRequest)
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	eligible, err := h.svc.IsEligible(r.Context(), carerID, bookingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"eligible": eligible})
}

func (h *HTTP) eligibleCarers(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	carers, err := h.svc.FilterCarers(r.Context(), bookingID, service.CarerFilter{
		Grade:         r.URL.Query().Get("grade"),
		MaxDistanceKM: parseQueryFloat(r, "max_distance_km"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, carers)
}

func (h *HTTP) eligibleCarersCount(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	carers, err := h.svc.EligibleCarers(r.Context(), bookingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(carers)})
}

func parseQueryFloat(r *http.Request, key string) float64 {
	v, _ := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
