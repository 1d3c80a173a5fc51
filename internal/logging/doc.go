// Package logging provides structured logging utilities for schedcli.
//
// All packages log through log/slog. This package holds the shared attribute
// names, a few helpers for building attributes consistently and the logger
// constructor used by the CLI.
//
// # Usage Patterns
//
// Build the process logger once, from configuration:
//
//	logger, closer, err := logging.New(logging.Options{Level: "info", File: cfg.Log.File})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
// Tag a logger with the operation being performed:
//
//	logger := logging.WithOperation(logger, "delete_entry")
//	logger.Info("deleted schedule", logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Bearer tokens are never logged; use SanitizeToken to record their presence
//   - Passwords never reach the logger
package logging
