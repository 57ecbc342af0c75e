package scheduler

// Package scheduler provides the gateway's background jobs:
// - Warm refresh of the configured watchlist so client cadences mostly hit cache
// - Periodic sweep of long-untouched cache entries
// - Periodic cache and health stats logging
//
// The jobs are implemented in jobs.go
