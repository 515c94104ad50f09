// Package controlapi exposes the strategy control surface over HTTP.
package controlapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	executionApp "github.com/oxarb/flasharb/business/execution/app"
	"github.com/oxarb/flasharb/business/strategy/app"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

// Server is the HTTP control API: start/stop strategies, inspect status,
// flip the run mode, repoint the contract, subscribe to the event feed.
type Server struct {
	addr     string
	registry *app.Registry
	mode     *app.ModeManager
	gateway  executionApp.ContractGateway
	feed     http.Handler
	logger   logger.LoggerInterface
	server   *http.Server
}

// NewServer creates a control API server. feed handles GET /ws upgrades.
func NewServer(
	addr string,
	registry *app.Registry,
	mode *app.ModeManager,
	gateway executionApp.ContractGateway,
	feed http.Handler,
	log logger.LoggerInterface,
) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		mode:     mode,
		gateway:  gateway,
		feed:     feed,
		logger:   log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /strategies", s.handleList)
	mux.HandleFunc("GET /strategies/{id}", s.handleStatus)
	mux.HandleFunc("POST /strategies/{id}/start", s.handleStart)
	mux.HandleFunc("POST /strategies/{id}/stop", s.handleStop)
	mux.HandleFunc("GET /mode", s.handleGetMode)
	mux.HandleFunc("POST /mode", s.handleSetMode)
	mux.HandleFunc("GET /contract", s.handleGetContract)
	mux.HandleFunc("POST /contract", s.handleSetContract)
	if s.feed != nil {
		mux.Handle("GET /ws", s.feed)
	}
	return mux
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(ctx, "control api server failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "control api listening", "addr", s.addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":       s.mode.Mode(),
		"strategies": s.registry.ListStatus(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.registry.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Start(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	state, _ := s.registry.Status(id)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Stop(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	state, _ := s.registry.Status(id)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.mode.Mode()})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed body"})
		return
	}

	mode := app.RunMode(req.Mode)
	if !s.mode.SetMode(mode) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "mode must be \"live\" or \"dry\"",
		})
		return
	}

	s.logger.Info(r.Context(), "run mode changed", "mode", mode)
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode})
}

// handleGetContract reports the current target contract. With a ?token=
// query it also reads the contract's holdings of that token.
func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"address": s.gateway.Contract().Hex()}

	if token := r.URL.Query().Get("token"); token != "" {
		if !common.IsHexAddress(token) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "token must be a 0x-prefixed 20-byte hex address",
			})
			return
		}
		balance, err := s.gateway.ContractBalance(r.Context(), common.HexToAddress(token))
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
			return
		}
		body["token"] = common.HexToAddress(token).Hex()
		body["balance"] = balance.String()
	}

	writeJSON(w, http.StatusOK, body)
}

type contractRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleSetContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed body"})
		return
	}

	if !common.IsHexAddress(req.Address) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "address must be a 0x-prefixed 20-byte hex address",
		})
		return
	}

	addr := common.HexToAddress(req.Address)
	s.gateway.SetContract(addr)

	s.logger.Info(r.Context(), "contract address changed", "address", addr.Hex())
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.Hex()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if apperror.GetCode(err) == apperror.CodeStrategyNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
