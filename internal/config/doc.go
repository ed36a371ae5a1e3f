// Package config loads and validates the service configuration and
// resolves the directories the service writes to.
//
// # Sources
//
// Values merge from three sources, highest precedence first:
//
//	1. DUMPSIFT_* environment variables
//	2. The YAML config file
//	3. Built-in defaults
//
// The config file is config.yaml in the working directory; set
// DUMPSIFT_CONFIG to point somewhere else. A missing file is not an
// error, the defaults plus environment take over.
//
// # Environment Variables
//
// Every key carries the DUMPSIFT_ prefix:
//
//	DUMPSIFT_SERVER_PORT=8080
//	DUMPSIFT_LOGGING_LEVEL=info
//	DUMPSIFT_PATHS_OUTPUT_DIR=/var/lib/dumpsift/output
//	DUMPSIFT_SPLIT_WORKBOOK=true
//
// # Paths
//
// The Paths type names every directory the service touches;
// EnsureDirectories creates them at startup and RunDir yields the
// per-run output directory:
//
//	paths, err := cfg.ResolvePaths()
//	runDir := paths.RunDir(runID)
//
// Load once when the process starts:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
