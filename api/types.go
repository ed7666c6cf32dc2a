package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	categoryHandler categoryHandler
	tagHandler      tagHandler
	projectHandler  projectHandler
	authHandler     authHandler
	contactHandler  contactHandler
	healthHandler   healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message" example:"Successfully logged out"`
}

// PlainErrorResponse is the body of a rejected login or contact request.
type PlainErrorResponse struct {
	Error string `json:"error" example:"Invalid credentials"`
}
