package middleware

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem details object. Middleware that rejects
// a request before it reaches a handler (rate limit, timeout, panic
// recovery) responds with one of these; handler-level errors go through
// the richer ProblemDetails in internal/errors.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render implements render.Renderer.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	WriteProblem(w, p)
	return nil
}

// WriteProblem writes the problem response directly, for middleware
// running outside the chi render chain.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

// problemKinds maps the statuses middleware can produce onto their
// problem type and title.
var problemKinds = map[int]Problem{
	http.StatusBadRequest:            {Type: "/errors/bad-request", Title: "Bad Request"},
	http.StatusNotFound:              {Type: "/errors/not-found", Title: "Not Found"},
	http.StatusMethodNotAllowed:      {Type: "/errors/method-not-allowed", Title: "Method Not Allowed"},
	http.StatusRequestEntityTooLarge: {Type: "/errors/payload-too-large", Title: "Payload Too Large"},
	http.StatusUnsupportedMediaType:  {Type: "/errors/unsupported-media-type", Title: "Unsupported Media Type"},
	http.StatusTooManyRequests:       {Type: "/errors/rate-limit-exceeded", Title: "Too Many Requests"},
	http.StatusInternalServerError:   {Type: "/errors/internal-server-error", Title: "Internal Server Error"},
	http.StatusServiceUnavailable:    {Type: "/errors/service-unavailable", Title: "Service Unavailable"},
	http.StatusGatewayTimeout:        {Type: "/errors/request-timeout", Title: "Request Timeout"},
}

// ProblemFromStatus builds the Problem for an HTTP status code. Statuses
// outside the catalog keep their standard text under the unknown type.
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	p, ok := problemKinds[status]
	if !ok {
		p = Problem{Type: "/errors/unknown", Title: http.StatusText(status)}
	}
	p.Status = status
	p.Detail = detail
	p.Trace = traceID
	return p
}
