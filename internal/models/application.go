package models

import "time"

// ItemStatus tracks one posting through the pipeline state machine:
// Pending -> (FilteredOut | Composing) -> Composed -> Sending -> (Sent | Failed).
type ItemStatus string

const (
	ItemPending     ItemStatus = "PENDING"
	ItemFilteredOut ItemStatus = "FILTERED_OUT"
	ItemComposing   ItemStatus = "COMPOSING"
	ItemComposed    ItemStatus = "COMPOSED"
	ItemSending     ItemStatus = "SENDING"
	ItemSent        ItemStatus = "SENT"
	ItemFailed      ItemStatus = "FAILED"
	ItemCancelled   ItemStatus = "CANCELLED"
)

// Terminal reports whether no further automatic transition occurs.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemFilteredOut, ItemSent, ItemFailed, ItemCancelled:
		return true
	}
	return false
}

// RequestStatus is the aggregate status of an ApplicationRequest.
type RequestStatus string

const (
	RequestCreated             RequestStatus = "CREATED"
	RequestScraping            RequestStatus = "SCRAPING"
	RequestFiltering           RequestStatus = "FILTERING"
	RequestProcessing          RequestStatus = "PROCESSING"
	RequestCompleted           RequestStatus = "COMPLETED"
	RequestCompletedWithErrors RequestStatus = "COMPLETED_WITH_ERRORS"
	RequestFailed              RequestStatus = "FAILED"
	RequestCancelled           RequestStatus = "CANCELLED"
)

// ApplicationItem pairs one posting with one request and carries its
// progress through the pipeline. Only the orchestrator's stage workers
// mutate it, and never two workers at once for the same item.
type ApplicationItem struct {
	Posting         JobPosting     `json:"posting"`
	Status          ItemStatus     `json:"status"`
	Score           float64        `json:"score"`
	Message         *ComposedEmail `json:"composed_message,omitempty"`
	Delivery        *DeliveryResult `json:"delivery,omitempty"`
	Error           string         `json:"error,omitempty"`
	ComposeAttempts int            `json:"compose_attempts"`
	SendAttempts    int            `json:"send_attempts"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ApplicationRequest is the unit registered in the request store. The
// orchestrator is its only writer; readers get deep-copied snapshots.
type ApplicationRequest struct {
	ID              string            `json:"request_id"`
	Profile         UserProfile       `json:"user_profile"`
	Criteria        SearchCriteria    `json:"criteria"`
	AutoApply       bool              `json:"auto_apply"`
	Status          RequestStatus     `json:"status"`
	Items           []ApplicationItem `json:"items"`
	Error           string            `json:"error,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CancelRequested bool              `json:"cancel_requested,omitempty"`
}

// Counts summarizes item progress for status payloads.
type Counts struct {
	JobsFound   int `json:"jobs_found"`
	FilteredOut int `json:"filtered_out"`
	Composed    int `json:"composed"`
	EmailsSent  int `json:"emails_sent"`
	Errors      int `json:"errors"`
}

// Count tallies the request's items per outcome.
func (r *ApplicationRequest) Count() Counts {
	c := Counts{JobsFound: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case ItemFilteredOut:
			c.FilteredOut++
		case ItemComposed:
			c.Composed++
		case ItemSent:
			c.EmailsSent++
		case ItemFailed:
			c.Errors++
		}
	}
	return c
}

// Clone returns a deep copy safe to hand to readers while the pipeline
// keeps mutating the original. Nested slices are copied too, so a snapshot
// shares no backing arrays with the live request.
func (r *ApplicationRequest) Clone() *ApplicationRequest {
	cp := *r
	cp.Profile.Skills = cloneStrings(r.Profile.Skills)
	cp.Criteria.Keywords = cloneStrings(r.Criteria.Keywords)
	cp.Criteria.Sites = cloneStrings(r.Criteria.Sites)
	cp.Items = make([]ApplicationItem, len(r.Items))
	copy(cp.Items, r.Items)
	for i := range cp.Items {
		cp.Items[i].Posting.Requirements = cloneStrings(cp.Items[i].Posting.Requirements)
		if m := cp.Items[i].Message; m != nil {
			mc := *m
			mc.Attachments = cloneStrings(m.Attachments)
			cp.Items[i].Message = &mc
		}
		if d := cp.Items[i].Delivery; d != nil {
			dc := *d
			cp.Items[i].Delivery = &dc
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
