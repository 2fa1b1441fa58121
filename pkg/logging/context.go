package logging

import (
	"log/slog"
)

// WithTx returns a logger scoped to the transaction holding a row, tagged
// with its tid. Use this to automatically include the holding transaction
// id in all logs for a locking phase.
//
// Example:
//
//	log := logging.WithTx(logger, uint64(tid))
//	log.Info("starting operation")
//	log.Debug("processing", "rows", count)
func WithTx(logger *slog.Logger, tid uint64) *slog.Logger {
	return logger.With("tid", tid)
}

// WithTable returns a logger scoped to one table.
//
// Example:
//
//	log := logging.WithTable(logger, "orders")
//	log.Info("clustering started")
func WithTable(logger *slog.Logger, tableName string) *slog.Logger {
	return logger.With("table", tableName)
}

// WithTableTx returns a logger scoped to both a transaction and a table.
//
// Example:
//
//	log := logging.WithTableTx(logger, uint64(tid), "orders")
//	log.Info("locking rows for commit", "count", 10)
func WithTableTx(logger *slog.Logger, tid uint64, tableName string) *slog.Logger {
	return logger.With("tid", tid, "table", tableName)
}

// WithColumn returns a logger scoped to one table/column pair. Used by
// histogram build and pruning operations.
//
// Example:
//
//	log := logging.WithColumn(logger, "customers", "age")
//	log.Debug("histogram built", "bins", len(bins))
func WithColumn(logger *slog.Logger, tableName, columnName string) *slog.Logger {
	return logger.With("table", tableName, "column", columnName)
}

// WithChunk returns a logger scoped to one chunk. Used by clustering and
// storage operations that act on a single chunk id.
//
// Example:
//
//	log := logging.WithChunk(logger, chunkID)
//	log.Debug("chunk finalized", "row_count", count)
func WithChunk(logger *slog.Logger, chunkID int) *slog.Logger {
	return logger.With("chunk_id", chunkID)
}

// WithChunkLock returns a logger scoped to a transaction's hold on one
// chunk. Used by the clustering sorter's per-row CAS locking phase.
//
// Example:
//
//	log := logging.WithChunkLock(logger, uint64(tid), chunkID)
//	log.Info("chunk locked for commit")
func WithChunkLock(logger *slog.Logger, tid uint64, chunkID int) *slog.Logger {
	return logger.With("tid", tid, "chunk_id", chunkID)
}

// WithComponent returns a logger scoped to one named subsystem.
//
// Example:
//
//	log := logging.WithComponent(logger, "boundary-planner")
//	log.Info("component initialized")
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError returns a logger carrying err in structured form.
//
// Example:
//
//	log := logging.WithError(logger, err)
//	log.Error("operation failed", "operation", "partition")
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
