package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/flagx"
)

var serverFlags = []string{
	"-a", "-store", "-bunt", "-d", "-s", "-t",
	"-u", "-p", "-b", "-g", "-e",
	"-scheme", "-short-hosts", "-k", "-m", "-l",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string             HTTP bind address (e.g., ":8080")
//	-store string         document store backend: buntdb or postgres
//	-bunt string          BuntDB file path
//	-d string             PostgreSQL DSN
//	-s string             JWT HMAC secret key
//	-t int                token validity, minutes
//	-u string             S3 root user
//	-p string             S3 root password
//	-b string             S3 bucket name
//	-g string             S3 region
//	-e string             S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-scheme string        app link URL scheme
//	-short-hosts string   comma separated short link hosts
//	-k string             Google Places API key
//	-m bool               expose /metrics
//	-l string             log level
//
// Only the flags listed here are taken from os.Args (see flagx.FilterArgs),
// so the JSON config flags can be parsed independently.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "store", config.StoreBackend, "document store backend (buntdb|postgres)")
	fs.StringVar(&config.BuntPath, "bunt", config.BuntPath, "BuntDB file path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.AppScheme, "scheme", config.AppScheme, "app link scheme")
	shortHosts := fs.String("short-hosts", strings.Join(config.ShortLinkHosts, ","), "short link hosts, comma separated")
	fs.StringVar(&config.PlacesAPIKey, "k", config.PlacesAPIKey, "Google Places API key")
	fs.BoolVar(&config.MetricsEnabled, "m", config.MetricsEnabled, "expose prometheus metrics")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.ShortLinkHosts = splitHosts(*shortHosts)
}

func splitHosts(s string) []string {
	hosts := make([]string, 0)
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
