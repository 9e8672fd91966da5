package config

import (
	"os"
	"strings"
)

// SiteName identifies this deployment in provider responses and is the
// source_site tag partners see when they mirror our stock.
//
// Set via env:
// - SITE_NAME=warehouse-east.example.com
func SiteName() string {
	name := strings.TrimSpace(os.Getenv("SITE_NAME"))
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}

// SyncLeaseDisabled turns off the per-source Redis lease that serializes
// overlapping syncs against the same site connection. The lease is a
// hardening over the original unguarded behavior; disabling it restores
// last-writer-wins interleaving.
//
// Set via env:
// - STOCK_SYNC_LEASE_DISABLED=true
func SyncLeaseDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STOCK_SYNC_LEASE_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
