package requests

import (
	"strings"
	"time"
)

// Category is the top-level service category chosen on the public form.
type Category string

const (
	CategoryQuickService Category = "quick-service"
	CategoryProducts     Category = "products-and-packages"
	CategorySupport      Category = "support-and-contact"
)

// Timeline captures when the customer wants the request handled.
type Timeline string

const (
	TimelineImmediate    Timeline = "immediate"
	TimelineThisWeek     Timeline = "this-week"
	TimelineThisMonth    Timeline = "this-month"
	TimelineJustBrowsing Timeline = "just-browsing"
)

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Tier is the coarse priority classification derived from the lead score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// servicesByCategory scopes the specific-service enum to its category.
var servicesByCategory = map[Category][]string{
	CategoryQuickService: {
		"puk", "estatement", "transaction-reversal", "locked-device", "clearance-letter",
	},
	CategoryProducts: {
		"data-bundle", "b2b", "kinara", "esim", "device-finance",
		"hbb", "fttx", "dedicated-link", "5g-unlimited-fwa",
	},
	CategorySupport: {
		"br-chatbot", "call", "location", "appointment",
	},
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryQuickService, CategoryProducts, CategorySupport:
		return true
	}
	return false
}

// Valid reports whether t is one of the enumerated timelines.
func (t Timeline) Valid() bool {
	switch t {
	case TimelineImmediate, TimelineThisWeek, TimelineThisMonth, TimelineJustBrowsing:
		return true
	}
	return false
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a dead-end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether t is one of the enumerated tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

// ServiceInCategory reports whether service belongs to category's catalogue.
func ServiceInCategory(category Category, service string) bool {
	for _, s := range servicesByCategory[category] {
		if s == service {
			return true
		}
	}
	return false
}

// ServiceRequest is a customer-initiated request captured from the public form.
// Submission attributes and the derived score/tier are immutable after
// creation; only status, assignment, notes and the bookkeeping timestamps
// change afterwards.
type ServiceRequest struct {
	ID                string     `json:"id"`
	Phone             string     `json:"phone"`
	Category          Category   `json:"category"`
	SpecificService   string     `json:"specific_service"`
	Timeline          Timeline   `json:"timeline"`
	ContactPreference bool       `json:"contact_preference"`
	IPAddress         string     `json:"ip_address,omitempty"`
	UserAgent         string     `json:"user_agent,omitempty"`
	LeadScore         int        `json:"lead_score"`
	Tier              Tier       `json:"tier"`
	Status            Status     `json:"status"`
	AssignedAgentID   *string    `json:"assigned_agent_id,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// HighPriority reports the strict headline-stats predicate: a high tier alone
// is not enough, the customer must also want the service immediately.
func (r *ServiceRequest) HighPriority() bool {
	return HighPriority(r.Tier, r.Timeline)
}

// Submission is the full attribute set written by the public submission path.
type Submission struct {
	Phone             string   `json:"phone"`
	Category          Category `json:"category"`
	SpecificService   string   `json:"specific_service"`
	Timeline          Timeline `json:"timeline"`
	ContactPreference bool     `json:"contact_preference"`
	IPAddress         string   `json:"-"`
	UserAgent         string   `json:"-"`
}

// Validate checks the submission against the enumerated sets. All invalid
// fields are reported at once so the form can surface them together.
func (s *Submission) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(s.Phone) == "" {
		verr.Add("phone", "phone number is required")
	}
	if !s.Category.Valid() {
		verr.Add("category", "unknown service category")
	}
	if !s.Timeline.Valid() {
		verr.Add("timeline", "unknown timeline")
	}
	if s.Category.Valid() && !ServiceInCategory(s.Category, s.SpecificService) {
		verr.Add("specific_service", "service not offered in this category")
	}
	if verr.Any() {
		return verr
	}
	return nil
}
