// Package api exposes the daemon's tracking state over a local HTTP/JSON
// socket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"bridgewatch"
	"bridgewatch/tracker"
)

// Service is the interface the API server needs from the daemon.
type Service interface {
	Track(ref bridgewatch.TransferRef) error
	StopTracking(txRef string) error
	Snapshot(txRef string) (bridgewatch.TransferRef, tracker.Snapshot, bool)
	Refs() []bridgewatch.TransferRef
	RecoveryOptions(txRef string) []tracker.Option
	Recover(ctx context.Context, txRef, optionID string) error
}

type Server struct {
	svc Service
	log *slog.Logger
}

func New(svc Service) *Server {
	return &Server{svc: svc, log: slog.With("component", "api")}
}

// ListenAndServe starts the HTTP server on a unix socket and blocks until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, socketPath string) error {
	// Remove stale socket.
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", socketPath, err)
	}

	srv := &http.Server{Handler: s.Handler()}

	// Shut down when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	_ = os.Remove(socketPath)
	return nil
}

// Handler returns the API route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/transfers", s.handleList)
	mux.HandleFunc("POST /v1/transfers", s.handleTrack)
	mux.HandleFunc("GET /v1/transfers/{ref}", s.handleGet)
	mux.HandleFunc("DELETE /v1/transfers/{ref}", s.handleStop)
	mux.HandleFunc("GET /v1/transfers/{ref}/recovery", s.handleOptions)
	mux.HandleFunc("POST /v1/transfers/{ref}/recovery", s.handleRecover)
	return mux
}

// Wire representations.

type transferView struct {
	TxRef       string     `json:"tx_ref"`
	SourceChain string     `json:"source_chain"`
	DestChain   string     `json:"dest_chain"`
	Steps       []stepView `json:"steps"`
	RouteNodes  []nodeView `json:"route_nodes"`
	CurrentStep int        `json:"current_step"`
	ActiveRoute int        `json:"active_route"`
	Error       string     `json:"error,omitempty"`
	Polling     bool       `json:"polling"`
}

type stepView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	TxHash      string `json:"tx_hash,omitempty"`
	ChainID     string `json:"chain_id,omitempty"`
}

type nodeView struct {
	Chain       string `json:"chain"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

type optionView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ButtonLabel string `json:"button_label"`
	Severity    string `json:"severity"`
}

func viewOf(ref bridgewatch.TransferRef, snap tracker.Snapshot) transferView {
	v := transferView{
		TxRef:       ref.TxRef,
		SourceChain: ref.SourceChain,
		DestChain:   ref.DestChain,
		CurrentStep: snap.CurrentStep,
		ActiveRoute: snap.ActiveRoute,
		Error:       snap.Err,
		Polling:     snap.Polling,
	}
	for _, st := range snap.Steps {
		v.Steps = append(v.Steps, stepView{
			ID:          st.ID,
			Title:       st.Title,
			Description: st.Description,
			Status:      st.Status.String(),
			TxHash:      st.TxHash,
			ChainID:     st.ChainID,
		})
	}
	for _, n := range snap.RouteNodes {
		v.RouteNodes = append(v.RouteNodes, nodeView{
			Chain:       n.Chain,
			DisplayName: n.DisplayName,
			Status:      n.Status.String(),
		})
	}
	return v
}

// Handlers.

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	var views []transferView
	for _, ref := range s.svc.Refs() {
		if r, snap, ok := s.svc.Snapshot(ref.TxRef); ok {
			views = append(views, viewOf(r, snap))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": views})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxRef       string `json:"tx_ref"`
		SourceChain string `json:"source_chain"`
		DestChain   string `json:"dest_chain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	ref := bridgewatch.TransferRef{
		TxRef:       req.TxRef,
		SourceChain: req.SourceChain,
		DestChain:   req.DestChain,
	}
	if err := s.svc.Track(ref); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ref, snap, ok := s.svc.Snapshot(r.PathValue("ref"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("transfer not tracked"))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ref, snap))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopTracking(r.PathValue("ref")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var views []optionView
	for _, opt := range s.svc.RecoveryOptions(r.PathValue("ref")) {
		views = append(views, optionView{
			ID:          opt.ID,
			Title:       opt.Title,
			Description: opt.Description,
			ButtonLabel: opt.ButtonLabel,
			Severity:    opt.Severity.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": views})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.svc.Recover(r.Context(), r.PathValue("ref"), req.Option); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
