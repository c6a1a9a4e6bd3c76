// Package logging provides a minimal logging interface and adapters for taskmesh.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// used by the graph store, tools, reasoners and the stream relay. Arguments
// after the message are structured key/value pairs in log/slog style.
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - TaskMeshLogger with component/context attributes and domain helpers
//   - NoOpLogger for silent operation (tests, library defaults)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := taskmesh.New(r, func(o *taskmesh.Options) { o.Logger = logger })
package logging
