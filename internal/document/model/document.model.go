package model

type Document struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentRequest is the body of create and update. Pointers distinguish
// an absent field from an empty string; both fields are required.
type DocumentRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
