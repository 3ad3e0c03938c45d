package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/MrEthical07/superjwt/metrics/export/prometheus"
	"github.com/MrEthical07/superjwt/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type api struct {
	authority *superjwt.Authority
	secret    []byte
	receiver  string
	logger    *zap.Logger
}

func (a *api) routes(metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /authorize", a.authorize)
	mux.HandleFunc("POST /verify", a.verify)
	mux.HandleFunc("GET /networks", a.networks)

	guard := middleware.RequireStream(a.authority, a.secret, middleware.StreamRequirement{Receiver: a.receiver})
	mux.Handle("GET /protected", guard(http.HandlerFunc(protected)))

	if metricsEnabled {
		mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(a.authority).Handler())
	}
	return mux
}

// authorize takes the stream description as the JSON body. ?expires_in=5m
// shortens or extends the default lifetime.
func (a *api) authorize(w http.ResponseWriter, r *http.Request) {
	var params superjwt.StreamParams
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var opts superjwt.SigningOptions
	if raw := r.URL.Query().Get("expires_in"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid expires_in")
			return
		}
		opts.ExpiresIn = d
	}

	res, err := a.authority.Authorize(r.Context(), params, a.secret, opts)
	if err != nil {
		status := authorizeStatus(err)
		if status == http.StatusInternalServerError {
			a.logger.Error("authorize failed", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":  res.Token,
		"stream": res.Stream,
	})
}

func (a *api) verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	claims, err := a.authority.Verify(body.Token, a.secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, superjwt.ErrInvalidToken.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims})
}

func (a *api) networks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"networks": a.authority.Networks()})
}

func protected(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "stream verified",
		"network": claims.Network(),
		"sender":  claims.Sender(),
	})
}

func authorizeStatus(err error) int {
	switch {
	case errors.Is(err, superjwt.ErrMissingParameters),
		errors.Is(err, superjwt.ErrInvalidParameters),
		errors.Is(err, superjwt.ErrUnsupportedNetwork):
		return http.StatusBadRequest
	case errors.Is(err, superjwt.ErrNoActiveStream):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
