// internal/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups the lobby engine's Prometheus series.
type Collector struct {
	LobbiesCreated prometheus.Counter
	Joins          prometheus.Counter
	GamesStarted   prometheus.Counter
	NumbersDrawn   prometheus.Counter
	Claims         *prometheus.CounterVec // label: result (won, kicked)
	GamesFinished  *prometheus.CounterVec // label: reason
	PotCredited    prometheus.Counter
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		LobbiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bingo_lobbies_created_total", Help: "lobbies created",
		}),
		Joins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bingo_player_joins_total", Help: "new players admitted into a lobby",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bingo_games_started_total", Help: "forming to active transitions",
		}),
		NumbersDrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bingo_numbers_drawn_total", Help: "numbers appended to call histories",
		}),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bingo_claims_total", Help: "win claims by outcome",
		}, []string{"result"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bingo_games_finished_total", Help: "finished lobbies by reason",
		}, []string{"reason"}),
		PotCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bingo_pot_credited_total", Help: "amount credited to pots by buy-ins and payments",
		}),
	}
	reg.MustRegister(c.LobbiesCreated, c.Joins, c.GamesStarted, c.NumbersDrawn, c.Claims, c.GamesFinished, c.PotCredited)
	return c
}
