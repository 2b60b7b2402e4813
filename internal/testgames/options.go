package testgames

import "github.com/okian/tempo/internal/domain/model"

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithTeams sets the home and away team ids.
func WithTeams(home, away model.TeamID) Option {
	return func(g *Generator) {
		if home > 0 && away > 0 && home != away {
			g.home = home
			g.away = away
		}
	}
}

// WithWallClock toggles wall-clock timestamps on generated events.
func WithWallClock(enabled bool) Option {
	return func(g *Generator) {
		g.wallClock = enabled
	}
}
