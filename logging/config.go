package logging

// Config defines the logging configuration resolved from the environment.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Set with the HIVE_LOG_LEVEL environment variable.
	Level string

	// ReportCaller, if true, includes the file, line, and function name in the
	// log output. Enabled with HIVE_LOG_CALLER=true.
	ReportCaller bool

	// Format configures the appearance of the log output.
	Format FormatConfig
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	// Set with HIVE_LOG_FORMAT.
	Preset string
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool
}
