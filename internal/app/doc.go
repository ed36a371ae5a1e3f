// Package app provides application initialization and lifecycle management
// for the dumpsift service. It wires configuration, logging, observability,
// the service layer, and the HTTP router into one container.
//
// # Startup
//
// NewApplication performs the steps in order:
//
//	1. Load configuration from defaults, file, and environment
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create working directories
//	4. Initialize the split and health services
//	5. Mount the HTTP handlers behind the middleware chain
//	6. Configure the HTTP server
//
// # Usage
//
// A main function normally does no more than:
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Shutdown
//
// Run handles SIGINT and SIGTERM. Shutdown drains active requests, stops the
// metrics collector, and flushes the OpenTelemetry providers. Initialization
// errors are returned to the caller; the package never calls os.Exit.
package app
