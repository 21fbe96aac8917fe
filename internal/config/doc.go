// Package config handles configuration loading and merging for quarantine.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--db, --format, --theme, --horizon, --log-level, etc.)
//  2. Environment variables (QUARANTINE_DB, QUARANTINE_FORMAT, NO_COLOR, ...)
//  3. YAML config file (.quarantine.yaml in the working directory or
//     ~/.config/quarantine/.quarantine.yaml)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
// The winning source of each key is kept in ResolvedConfig.Sources.
//
// # Key Configuration Options
//
//   - db: path of the SQLite build history
//   - results: pattern of test-result files inside the workspace
//   - override_file: name of the per-build override list
//   - horizon: how many prior builds carry-forward and pass counting visit (0 = all)
//   - notify: outbox directory, sender and user address book for owner notices
//
// # Environment Variables
//
// Every scalar key has a QUARANTINE_ variable in upper case (QUARANTINE_LOG_LEVEL
// for log_level). NO_COLOR is honoured as well as QUARANTINE_NO_COLOR.
package config
