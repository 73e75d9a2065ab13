package particles

import "github.com/gekko3d/particles/logging"

// LoggingModule installs a logger as a resource. Logger, when set, is used
// instead of a DefaultLogger built from Prefix and Debug.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Logger logging.Logger
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	logger := m.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger(m.Prefix, m.Debug)
	}
	app.addResources(&loggerResource{Logger: logger})
}

// loggerResource gives the Logger interface a stable resource type.
type loggerResource struct {
	logging.Logger
}

// Logger returns the installed logger, otherwise a no-op logger.
// Safe to call at any time; never returns nil.
func (app *App) Logger() logging.Logger {
	if app == nil || app.resources == nil {
		return logging.NewNopLogger()
	}
	if r, ok := Resource[loggerResource](app); ok && r.Logger != nil {
		return r.Logger
	}
	return logging.NewNopLogger()
}
