// Package tickets manages service requests from public submission to technician
// follow-up and admin closure.
package tickets

import "time"

// ClientType distinguishes individual clients from companies.
type ClientType string

const (
	ClientPerson  ClientType = "person"
	ClientCompany ClientType = "company"
)

// Request statuses stored on tickets.request_status.
const (
	RequestSubmitted = "submitted"
	RequestScheduled = "scheduled"
)

// Progress statuses a technician may ask for.
const (
	ProgressInProgress        = "in_progress"
	ProgressCompleted         = "completed"
	ProgressNeedsReschedule   = "needs_reschedule"
	ProgressClientAbsent      = "client_absent"
	ProgressAwaitingMaterials = "awaiting_materials"
)

// Closing statuses an admin may set manually.
const (
	CloseCompleted    = "completed"
	CloseFinished     = "finished"
	CloseCancelled    = "cancelled"
	CloseClientAbsent = "client_absent"
)

// Task types of a scheduled visit.
const (
	TaskSurvey       = "survey"
	TaskInstallation = "installation"
	TaskMaintenance  = "maintenance"
)

// Status request states.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// History actions.
const (
	ActionSubmitted          = "submitted"
	ActionTechnicianAssigned = "technician_assigned"
	ActionStatusRequested    = "status_requested"
	ActionStatusApproved     = "status_approved"
	ActionStatusRejected     = "status_rejected"
	ActionManualClose        = "manual_close"
	ActionEvidenceAdded      = "evidence_added"
)

// Ticket is a client service request.
type Ticket struct {
	ID             int64      `json:"id"`
	CaseNumber     string     `json:"case_number"`
	ClientType     ClientType `json:"client_type"`
	ClientName     string     `json:"client_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	CompanyName    string     `json:"company_name,omitempty"`
	CompanyTaxID   string     `json:"company_tax_id,omitempty"`
	OfferingID     *int64     `json:"offering_id,omitempty"`
	OfferingName   string     `json:"offering_name,omitempty"`
	Description    string     `json:"description"`
	RequestStatus  string     `json:"request_status"`
	ProgressStatus string     `json:"progress_status"`
	TechnicianID   *int64     `json:"technician_id,omitempty"`
	TechnicianName string     `json:"technician_name,omitempty"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime  string     `json:"scheduled_time,omitempty"`
	TaskType       string     `json:"task_type,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Evidence       []Evidence `json:"evidence,omitempty"`
}

// Closed reports whether an admin closed the ticket.
func (t Ticket) Closed() bool { return t.ClosedAt != nil }

// AssignedTo reports whether the ticket is assigned to technicianID.
func (t Ticket) AssignedTo(technicianID int64) bool {
	return t.TechnicianID != nil && *t.TechnicianID == technicianID
}

// Tracking is the public view of a ticket; it carries no contact data.
type Tracking struct {
	CaseNumber     string     `json:"case_number"`
	RequestStatus  string     `json:"request_status"`
	ProgressStatus string     `json:"progress_status"`
	ServiceName    string     `json:"service_name"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime  string     `json:"scheduled_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StatusRequest is a technician's request to change a ticket's progress.
type StatusRequest struct {
	ID              int64      `json:"id"`
	TicketID        int64      `json:"ticket_id"`
	TechnicianID    int64      `json:"technician_id"`
	RequestedStatus string     `json:"requested_status"`
	Note            string     `json:"note"`
	State           string     `json:"state"`
	ResolvedBy      *int64     `json:"resolved_by,omitempty"`
	ResolutionNote  string     `json:"resolution_note,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// HistoryEntry is one line of a ticket's audit trail.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	ActorID     *int64    `json:"actor_id,omitempty"`
	ActorName   string    `json:"actor"`
	ActorRole   string    `json:"role"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Evidence is a file a technician attached to a ticket.
type Evidence struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	UploadedBy  *int64    `json:"uploaded_by,omitempty"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Visit is a scheduled ticket shown on a technician calendar.
type Visit struct {
	TicketID       int64     `json:"ticket_id"`
	CaseNumber     string    `json:"case_number"`
	ClientName     string    `json:"client_name"`
	Address        string    `json:"address"`
	ServiceName    string    `json:"service_name"`
	TaskType       string    `json:"task_type"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	ProgressStatus string    `json:"progress_status"`
	TechnicianID   int64     `json:"technician_id"`
}

// Technician is the slice of a user needed to assign work.
type Technician struct {
	ID       int64
	Name     string
	IsActive bool
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	RequestStatus string
	TechnicianID  int64
	Search        string
	Page          int
	PerPage       int
}
