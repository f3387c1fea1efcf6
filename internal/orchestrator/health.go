package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/samber/lo"

	"github.com/rickgao/listing-watch/internal/dispatch"
	"github.com/rickgao/listing-watch/internal/ledger"
	"github.com/rickgao/listing-watch/internal/listener"
	"github.com/rickgao/listing-watch/internal/poller"
	"github.com/rickgao/listing-watch/internal/version"
)

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Health is the /health response body.
type Health struct {
	Status     string               `json:"status"`
	Version    string               `json:"version"`
	Sources    []poller.Stats       `json:"sources"`
	Listeners  []listener.Stats     `json:"listeners"`
	Dispatcher dispatch.Stats       `json:"dispatcher"`
	Ledger     []ledger.StreamStats `json:"ledger"`
}

// Health collects component stats. The status is degraded when a listener
// is disconnected or a source has never completed a poll despite trying.
func (o *Orchestrator) Health() Health {
	h := Health{
		Status:     StatusHealthy,
		Version:    version.Version,
		Sources:    lo.Map(o.pollers, func(p *poller.Poller, _ int) poller.Stats { return p.Stats() }),
		Listeners:  lo.Map(o.listeners, func(l *listener.Listener, _ int) listener.Stats { return l.Stats() }),
		Dispatcher: o.dispatcher.Stats(),
		Ledger:     o.ledger.Stats(),
	}

	failing := lo.SomeBy(h.Sources, func(s poller.Stats) bool { return s.Errors > 0 && s.LastSuccess.IsZero() })
	down := lo.SomeBy(h.Listeners, func(s listener.Stats) bool { return s.LastError != "" && !s.Connected })
	if failing || down {
		h.Status = StatusDegraded
	}
	return h
}

// Handler serves /health.
func (o *Orchestrator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(o.Health()); err != nil {
			o.logger.Warn("failed to write health response", "remote", r.RemoteAddr, "error", err)
		}
	})
	return mux
}
