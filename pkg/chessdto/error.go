package chessdto

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (e ErrorResponse) String() string {
	if e.Error != "" {
		return e.Error
	}
	return "chess coach error"
}
