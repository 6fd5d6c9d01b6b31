package config

// Application constants
const (
	// Application Info
	AppName    = "bckey"
	AppVersion = "2.1.0"

	// EnvPrefix namespaces every environment variable: BCKEY_LOGGING_LEVEL,
	// BCKEY_MACHINE_PREFERRED_PREFIXES, ...
	EnvPrefix = "BCKEY"

	// License decoding
	DefaultWorkers        = 4
	DefaultRateLimitBurst = 10

	// MaxInterfaceNameLen is IFNAMSIZ, the kernel limit including the NUL.
	MaxInterfaceNameLen = 16

	// HTTP endpoints served next to metrics
	HealthEndpoint  = "/healthz"
	ReadyEndpoint   = "/readyz"
	MetricsEndpoint = "/metrics"
)

// DefaultPreferredPrefixes are the interface name prefixes tried first when
// deriving the machine fingerprint.
var DefaultPreferredPrefixes = []string{"eth", "wlan"}

// ConfigFileLocations are searched in order when BCKEY_CONFIG is unset.
var ConfigFileLocations = []string{
	"bckey.yaml",
	"configs/bckey.yaml",
}
