package server

// CreatePageRequest represents the payload required to store a host page.
type CreatePageRequest struct {
	Slug    string `json:"slug" example:"docs"`
	Name    string `json:"name" example:"Documentation"`
	BaseURL string `json:"base_url" example:"http://localhost:9999/docs/"`
	HTML    string `json:"html" example:"<main id=\"content\"></main>"`
}

// InjectRequest asks for the Markdown at SourceURL to be rendered into
// ElementID. With Wait set the injection runs inline and the result is
// returned instead of a job.
type InjectRequest struct {
	ElementID string `json:"element_id" example:"content"`
	SourceURL string `json:"source_url" example:"http://localhost:9999/docs/intro.md"`
	Wait      bool   `json:"wait" example:"false"`
}

// InjectBatchRequest runs several injections into one page.
type InjectBatchRequest struct {
	Items []InjectRequest `json:"items"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"page not found"`
}
