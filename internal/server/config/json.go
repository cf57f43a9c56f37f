package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sangaman/lightninggem/internal/flagx"
	"github.com/sangaman/lightninggem/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "2m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	DatabaseDSN       string         `json:"database_dsn"`
	LndHost           string         `json:"lnd_host"`
	LndTLSCertPath    string         `json:"lnd_tls_cert_path"`
	LndMacaroonPath   string         `json:"lnd_macaroon_path"`
	PublicDir         string         `json:"public_dir"`
	OwnershipDeadline timex.Duration `json:"ownership_deadline"`
	MonitorInterval   timex.Duration `json:"monitor_interval"`
	RevealCronSpec    string         `json:"reveal_cron_spec"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
// The caller is expected to merge these values with defaults, environment
// variables, and command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.LndHost = c.LndHost
	config.LndTLSCertPath = c.LndTLSCertPath
	config.LndMacaroonPath = c.LndMacaroonPath
	config.PublicDir = c.PublicDir
	config.OwnershipDeadline = time.Duration(c.OwnershipDeadline.Duration)
	config.MonitorInterval = time.Duration(c.MonitorInterval.Duration)
	config.RevealCronSpec = c.RevealCronSpec
}
