// Package reed holds the request, response, and error vocabulary shared by
// every ReedBase layer. Services accept a Request, answer with a Response,
// and fail with one of the typed errors in this package.
package reed

import "time"

// Request carries the parameters of one lookup or mutation. An empty string
// means the field was not provided.
type Request struct {
	Key         string
	Language    string
	Environment string
	Context     string
	Value       string
	Description string
}

// Response is the service-layer answer: the payload, the file it came from,
// and whether it was served from a warm in-memory structure.
type Response struct {
	Data      string
	Source    string
	Cached    bool
	Timestamp time.Time
}

// Now returns the timestamp used for response stamping.
func Now() time.Time {
	return time.Now().UTC()
}
