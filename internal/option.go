package internal

import (
	"io"

	"github.com/starford/treesync/internal/seeder"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	out    io.Writer
	logOut io.Writer
	plan   *seeder.Plan
	fetch  bool
	watch  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where the reporter writes the rendered tree.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogOutput sets where log lines go.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithPlan overrides the plan the seeder creates.
func WithPlan(p *seeder.Plan) Option {
	return func(a *application) {
		a.plan = p
	}
}

// WithFetch makes the reporter pull the live tree and save it as the
// snapshot before rendering.
func WithFetch(fetch bool) Option {
	return func(a *application) {
		a.fetch = fetch
	}
}

// WithWatch makes the reporter re-render whenever the snapshot changes.
func WithWatch(watch bool) Option {
	return func(a *application) {
		a.watch = watch
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
