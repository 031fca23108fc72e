// Package logger provides structured logging for parbuild using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and context enrichment with the run and action being executed.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("scheduler")
//	log.Info("run finished", logger.Fields("run_id", id, "actions", n))
package logger
