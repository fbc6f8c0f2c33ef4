package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/bingo/go/internal/bingo/gamestate"
	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/client"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
)

const maxBodyBytes = 64 * 1024

// Backend is the part of the realtime client the status API drives
type Backend interface {
	Snapshot(ctx context.Context) (gamestate.View, error)
	Status(ctx context.Context) (client.Status, error)
	RequestReconnect(ctx context.Context) error
	Send(ctx context.Context, intent protocol.Intent) (client.Delivery, error)
}

// Handler serves the local status and control endpoints
type Handler struct {
	backend Backend
	timeout time.Duration
}

// NewHandler creates the route handler for backend
func NewHandler(backend Backend) *Handler {
	return &Handler{backend: backend, timeout: 5 * time.Second}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /info", h.info)
	mux.HandleFunc("GET /state", h.state)
	mux.HandleFunc("POST /reconnect", h.reconnect)
	mux.HandleFunc("POST /admin/{action}", h.admin)
	mux.HandleFunc("POST /intents", h.intent)
	return mux
}

// NewServer wraps the routes with CORS and h2c
func NewServer(addr string, allowedOrigins []string, backend Backend) *http.Server {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	handler := c.Handler(NewHandler(backend).Routes())

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.backend.Status(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	code := http.StatusOK
	if st.State != supervisor.Connected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"state": st.State.String()})
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.backend.Status(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.backend.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) reconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.backend.RequestReconnect(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	log.Info().Str("remote", r.RemoteAddr).Msg("manual reconnect requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnecting"})
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var payload map[string]interface{}
	if err := decodeBody(r, &payload, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.deliver(w, r, protocol.Admin(action, payload))
}

func (h *Handler) intent(w http.ResponseWriter, r *http.Request) {
	var intent protocol.Intent
	if err := decodeBody(r, &intent, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.deliver(w, r, intent)
}

type deliveryResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Delivery string `json:"delivery"`
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, intent protocol.Intent) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	delivery, err := h.backend.Send(ctx, intent)
	switch {
	case errors.Is(err, protocol.ErrMissingKind):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	code := http.StatusOK
	if delivery == client.Queued {
		code = http.StatusAccepted
	}
	writeJSON(w, code, deliveryResponse{
		ID:       intent.ID,
		Kind:     string(intent.Kind),
		Delivery: delivery.String(),
	})
}

func decodeBody(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
