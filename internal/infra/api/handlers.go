// File: internal/infra/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/usecase"
)

type startRequest struct {
	UserID   string `json:"user_id"`
	OrderID  string `json:"order_id"`
	Currency string `json:"currency"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type gatewayRequest struct {
	GatewayID string `json:"gateway_id"`
}

type submitRequest struct {
	InstrumentToken string `json:"instrument_token"`
	SavedMethodID   string `json:"saved_method_id"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "user_id and order_id are required")
		return
	}
	sess, err := s.checkoutUC.StartSession(r.Context(), req.UserID, req.OrderID, req.Currency)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.checkoutUC.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "coupon code is required")
		return
	}
	sess, err := s.checkoutUC.ApplyCoupon(r.Context(), chi.URLParam(r, "sessionID"), req.Code)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSelectGateway(w http.ResponseWriter, r *http.Request) {
	var req gatewayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GatewayID == "" {
		writeError(w, http.StatusBadRequest, "gateway_id is required")
		return
	}
	sess, err := s.checkoutUC.SelectGateway(r.Context(), chi.URLParam(r, "sessionID"), req.GatewayID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if r.Body != nil {
		// Body is optional for wallet and redirect submits.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	sess, err := s.checkoutUC.Submit(r.Context(), chi.URLParam(r, "sessionID"), usecase.SubmitInput{
		InstrumentToken: req.InstrumentToken,
		SavedMethodID:   req.SavedMethodID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, err := s.checkoutUC.Retry(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.checkoutUC.Abandon(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statsUC.Totals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	week, month, year, err := s.statsUC.Revenue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": totals,
		"revenue_cents": map[string]int64{
			"week":  week,
			"month": month,
			"year":  year,
		},
	})
}

// handleCallback is the provider return landing. The query carries the
// provider reference and an advisory status; the real outcome comes from the
// provider verify call inside ResumeRedirect.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	ref := q.Get("ref")
	if ref == "" {
		// Some providers use Authority like query keys.
		ref = q.Get("Authority")
	}
	approved := q.Get("status") == "OK" || q.Get("Status") == "OK"

	if ref == "" {
		s.renderCallback(w, http.StatusBadRequest, false, "missing provider reference")
		return
	}

	sess, err := s.checkoutUC.ResumeRedirect(ctx, ref, approved)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessing) {
			s.renderCallback(w, http.StatusOK, false, "payment is being finalized, refresh in a moment")
			return
		}
		s.renderCallback(w, http.StatusBadRequest, false, "payment could not be verified")
		return
	}
	if sess.Status == model.SessionSucceeded {
		s.renderCallback(w, http.StatusOK, true, "payment verified, your course is unlocked")
		return
	}
	msg := sess.ErrorMessage
	if msg == "" {
		msg = "payment was not completed"
	}
	s.renderCallback(w, http.StatusOK, false, msg)
}

var callbackPage = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{if .OK}}Success{{else}}Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}Payment Successful{{else}}Payment Result{{end}}</h2>
  <p>{{.Msg}}</p>
  <a class="btn" href="/">Back to the store</a>
</div>
</body>
</html>`))

func (s *Server) renderCallback(w http.ResponseWriter, code int, ok bool, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = callbackPage.Execute(w, struct {
		OK  bool
		Msg string
	}{OK: ok, Msg: msg})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, "a payment is already in progress for this session")
	case errors.Is(err, domain.ErrInvalidCoupon),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponExceedsAmount):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnsupportedGateway),
		errors.Is(err, domain.ErrMissingExchangeRate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoGatewaysAvailable):
		writeError(w, http.StatusServiceUnavailable, "checkout is temporarily unavailable")
	default:
		s.log.Error().Err(err).Msg("unhandled api error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
