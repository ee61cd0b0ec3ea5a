package error

// ApiError is the body of every failed JSON response.
type ApiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	TypeBadRequest = "BAD_REQUEST"
	TypeNotFound   = "NOT_FOUND"
	TypeBadGateway = "BAD_GATEWAY"
	TypeError      = "ERROR"
)
