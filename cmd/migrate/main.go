package main

import (
	"scorekeeper/internal/config" // Custom import path (Config)
	"scorekeeper/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg)            // Create the schema and promote the bootstrap admin
}
