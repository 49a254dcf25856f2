// internal/httpserver/metrics.go
//
// Prometheus metrics for the game server, registered on the server's own
// registry and exposed at /metrics:
//   - games started per mode, guesses per outcome, games finished per result;
//   - a histogram of mistakes per finished game.

package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robalobadob/connections/apps/go-server/internal/game"
)

// metrics are the game counters exported on /metrics.
type metrics struct {
	started  *prometheus.CounterVec
	guesses  *prometheus.CounterVec
	finished *prometheus.CounterVec
	mistakes prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_games_started_total",
			Help: "Games started, by mode.",
		}, []string{"mode"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_guesses_total",
			Help: "Submitted guesses, by outcome.",
		}, []string{"outcome"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_games_finished_total",
			Help: "Finished games, by result.",
		}, []string{"result"}),
		mistakes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "connections_game_mistakes",
			Help:    "Mistakes made per finished game.",
			Buckets: []float64{0, 1, 2, 3, 4},
		}),
	}
	reg.MustRegister(m.started, m.guesses, m.finished, m.mistakes)
	return m
}

func (m *metrics) handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *metrics) gameStarted(mode string) { m.started.WithLabelValues(mode).Inc() }

func (m *metrics) guessed(ev *game.Evaluation) {
	if ev == nil || ev.Outcome == game.OutcomeIgnored {
		return
	}
	m.guesses.WithLabelValues(string(ev.Outcome)).Inc()
}

func (m *metrics) gameFinished(s *game.Session) {
	m.finished.WithLabelValues(s.State()).Inc()
	m.mistakes.Observe(float64(s.MistakesMade()))
}
