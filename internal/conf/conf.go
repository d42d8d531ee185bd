package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the root configuration for the service.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Breaker *Breaker
	Auth    *Auth
	Log     *Log
}

// Server holds transport endpoint configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP configures the HTTP admin surface.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds backing store configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database configures the MySQL connection used for the audit trail.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis configures the connection used for event publishing.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Breaker configures circuit breaker behaviour.
type Breaker struct {
	// Defaults applies to every dependency without an entry in Dependencies.
	Defaults *Breaker_Config
	// Dependencies maps a dependency name to its override block.
	Dependencies map[string]*Breaker_Config
	Health       *Breaker_Health
	Events       *Breaker_Events
}

// Breaker_Config is one breaker configuration block. Preset names a base
// shape ("default", "aggressive", "conservative"); the remaining fields
// override individual preset values when non-zero.
type Breaker_Config struct {
	Preset                string
	FailureThreshold      int
	SuccessThreshold      int
	Timeout               *durationpb.Duration
	HalfOpenMaxCalls      int
	FailureRateThreshold  float64
	WindowSize            int
	SlowCallThreshold     *durationpb.Duration
	SlowCallRateThreshold float64
}

// Breaker_Health configures the recovery probe sweep.
type Breaker_Health struct {
	Enabled      bool
	Interval     *durationpb.Duration
	ProbeTimeout *durationpb.Duration
}

// Breaker_Events configures state change event publishing.
type Breaker_Events struct {
	Channel  string
	DedupTTL *durationpb.Duration
}

// Auth holds the admin API credential.
type Auth struct {
	AdminKey string
}

// Log configures the logging stack.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
