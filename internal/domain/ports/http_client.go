package ports

import "net/http"

// HTTPClient sends requests to the gateway and the billing host. Tests swap
// in an httptest server client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
