package node

import (
	"encoding/json"
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// debugHandler is a read-only operational surface (spec §6's CLI/admin
// collaborator contract: "administrative APIs beyond listing" are out of
// scope, but plain listing is exactly what this exposes), mirroring
// handler.go's mux-of-named-resources shape with bmizerany/pat.
type debugHandler struct {
	mux    *pat.PatternServeMux
	server *Server
}

func newDebugHandler(s *Server) *debugHandler {
	h := &debugHandler{mux: pat.New(), server: s}
	h.mux.Get("/healthz", http.HandlerFunc(h.healthz))
	h.mux.Get("/graph", http.HandlerFunc(h.graph))
	h.mux.Get("/keys", http.HandlerFunc(h.keys))
	h.mux.Get("/metrics", promhttp.Handler())
	return h
}

func (h *debugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *debugHandler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *debugHandler) graph(w http.ResponseWriter, r *http.Request) {
	txs, err := h.server.Graph.ToVec()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID.String())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ids)
}

func (h *debugHandler) keys(w http.ResponseWriter, r *http.Request) {
	ids, err := h.server.KeyStore.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ids)
}
