// Package http implements the HTTP handlers for the dump-splitting service.
// It is a thin layer between chi routing and the service layer: handlers
// parse and validate requests, delegate to services, and render JSON.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Pipeline
//	                                              ↓
//	HTTP Response ← render.JSON ← Service Result ←┘
//
// # Error Handling
//
// Handlers never write error payloads themselves; every failure goes through
// errors.ErrorHandler, which renders RFC 7807 problem details:
//
//	{
//	    "type": "/errors/dump/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "Dump file not found",
//	    "instance": "/api/split"
//	}
//
// A split run that finishes with per-section failures is not an error at this
// layer: the run result is rendered with status "partial" and the failure
// list, and the client decides what to do with it.
package http
