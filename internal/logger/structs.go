package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `toml:"enabled"          mapstructure:"enabled"`
	UseConsoleWriter bool `toml:"useConsoleWriter" mapstructure:"useConsoleWriter"`
}

// LogFile implements a file based logger.
type LogFile struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`

	AccessLog        string `toml:"access" mapstructure:"access"`
	AccessMaxSize    int    `toml:"accessMaxSize" mapstructure:"accessMaxSize"`
	AccessMaxBackups int    `toml:"accessMaxBackups" mapstructure:"accessMaxBackups"`
	AccessMaxAge     int    `toml:"accessMaxAge" mapstructure:"accessMaxAge"`

	ErrorLog        string `toml:"error" mapstructure:"error"`
	ErrorMaxSize    int    `toml:"errorMaxSize" mapstructure:"errorMaxSize"`
	ErrorMaxBackups int    `toml:"errorMaxBackups" mapstructure:"errorMaxBackups"`
	ErrorMaxAge     int    `toml:"errorMaxAge" mapstructure:"errorMaxAge"`

	InfoLog        string `toml:"info" mapstructure:"info"`
	InfoMaxSize    int    `toml:"infoMaxSize" mapstructure:"infoMaxSize"`
	InfoMaxBackups int    `toml:"infoMaxBackups" mapstructure:"infoMaxBackups"`
	InfoMaxAge     int    `toml:"infoMaxAge" mapstructure:"infoMaxAge"`

	TraceLog        string `toml:"trace" mapstructure:"trace"`
	TraceMaxSize    int    `toml:"traceMaxSize" mapstructure:"traceMaxSize"`
	TraceMaxBackups int    `toml:"traceMaxBackups" mapstructure:"traceMaxBackups"`
	TraceMaxAge     int    `toml:"traceMaxAge" mapstructure:"traceMaxAge"`

	WarnLog        string `toml:"warn" mapstructure:"warn"`
	WarnMaxSize    int    `toml:"warnMaxSize" mapstructure:"warnMaxSize"`
	WarnMaxBackups int    `toml:"warnMaxBackups" mapstructure:"warnMaxBackups"`
	WarnMaxAge     int    `toml:"warnMaxAge" mapstructure:"warnMaxAge"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.
	LogEnv   string

	// EnableAccessLogToConsole writes the http access log to the console as well.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool
	ReportCaller             bool
	DisableHealthLog         bool // do not log /health calls

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	// File enables rolling log files split by level.
	File LogFile `toml:"file" mapstructure:"file"`
}
