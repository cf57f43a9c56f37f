package config

import (
	"os"
	"time"
)

// parseEnv overlays configuration values from environment variables. Unset
// variables leave the current value untouched. Duration variables use the
// time.ParseDuration syntax ("24h", "2m"); unparsable values are ignored.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("LN_GEM_ADDR"); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("LND_HOST"); ok {
		config.LndHost = v
	}
	if v, ok := os.LookupEnv("LND_TLS_CERT"); ok {
		config.LndTLSCertPath = v
	}
	if v, ok := os.LookupEnv("LND_MACAROON"); ok {
		config.LndMacaroonPath = v
	}
	if v, ok := os.LookupEnv("PUBLIC_DIR"); ok {
		config.PublicDir = v
	}
	if v, ok := os.LookupEnv("OWNERSHIP_DEADLINE"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.OwnershipDeadline = d
		}
	}
	if v, ok := os.LookupEnv("MONITOR_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.MonitorInterval = d
		}
	}
	if v, ok := os.LookupEnv("REVEAL_CRON_SPEC"); ok {
		config.RevealCronSpec = v
	}
}
