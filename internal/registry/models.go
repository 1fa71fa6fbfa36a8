package registry

// Page is a stored host document whose elements receive injected content.
type Page struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	BaseURL   string `json:"base_url,omitempty"`
	HTML      string `json:"-"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type InjectionStatus string

const (
	InjectionDone       InjectionStatus = "done"
	InjectionFailed     InjectionStatus = "failed"
	InjectionCanceled   InjectionStatus = "canceled"
	InjectionSuperseded InjectionStatus = "superseded"
)

// Injection is the log record of one injection attempt into a page.
// ChangesJSON holds the serialised change summary. Timestamps are unix millis.
type Injection struct {
	ID          string          `json:"id"`
	PageID      string          `json:"page_id"`
	ElementID   string          `json:"element_id"`
	SourceURL   string          `json:"source_url"`
	Status      InjectionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Bytes       int             `json:"bytes"`
	Changed     bool            `json:"changed"`
	ChangesJSON string          `json:"changes,omitempty"`
	StartedAt   int64           `json:"started_at"`
	EndedAt     int64           `json:"ended_at"`
}
