package api

// healthResponse is the payload for GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
}

// errorResponse is the JSON body of every error response.
type errorResponse struct {
	Error string `json:"error"`
}
