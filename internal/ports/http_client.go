package ports

import "net/http"

// HTTPClient is the subset of *http.Client the HTTP batch sender needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
