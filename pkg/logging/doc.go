// Package logging provides a process-wide structured logger and a set of
// helpers for deriving request-scoped child loggers from it.
//
// The package wraps [log/slog]. One process-wide logger is initialized once
// and retrieved via GetLogger — but only at the root of the call graph.
// Everywhere else, a caller that already holds a *slog.Logger (because it
// received one as a parameter) should derive from that logger directly
// with the With* helpers below, not call GetLogger again.
//
// # Initialisation
//
// Call Init (or InitDefault for sensible defaults) once at program startup,
// before any goroutines that might call GetLogger are spawned:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelInfo}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes INFO-level logs to stdout without a log file.
//
// # Retrieving the logger
//
//	logger := logging.GetLogger()
//	result, err := orchestrator.Run(ctx, table, tableName, hist, part, reg, cfg, logger)
//
// If GetLogger is called before Init, a default stdout logger is created
// lazily (via sync.Once) so that packages that log during init are safe.
//
// # Context helpers
//
// Each helper takes the logger to derive from as its first argument and
// returns a child logger pre-populated with one or more structured fields,
// reducing repetition at call sites that log repeatedly about the same
// transaction, table, or chunk:
//
//	log := logging.WithTx(logger, uint64(tid))  // adds tid field
//	log := logging.WithTable(logger, name)      // adds table field
//	log := logging.WithChunk(logger, id)        // adds chunk_id field
package logging
