package config

import (
	"flag"
	"os"
	"time"

	"github.com/sangaman/lightninggem/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-l string   lnd gRPC host:port
//	-t string   lnd TLS certificate path
//	-m string   lnd admin macaroon path
//	-p string   public (static dashboard) directory
//	-o int      ownership deadline, hours
//	-i int      monitor tick interval, minutes
//	-r string   cron spec for the daily secret reveal
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-t", "-m", "-p", "-o", "-i", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LndHost, "l", config.LndHost, "lnd gRPC host:port")
	fs.StringVar(&config.LndTLSCertPath, "t", config.LndTLSCertPath, "lnd TLS certificate path")
	fs.StringVar(&config.LndMacaroonPath, "m", config.LndMacaroonPath, "lnd admin macaroon path")
	fs.StringVar(&config.PublicDir, "p", config.PublicDir, "public directory")

	ownershipDeadline := fs.Int("o", int(config.OwnershipDeadline.Hours()), "ownership_deadline (in hours)")
	monitorInterval := fs.Int("i", int(config.MonitorInterval.Minutes()), "monitor_interval (in minutes)")

	fs.StringVar(&config.RevealCronSpec, "r", config.RevealCronSpec, "secret reveal cron spec")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OwnershipDeadline = time.Duration(*ownershipDeadline) * time.Hour
	config.MonitorInterval = time.Duration(*monitorInterval) * time.Minute
}
