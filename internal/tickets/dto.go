package tickets

import "io"

// SubmitInput is the public service request form.
type SubmitInput struct {
	ClientType   ClientType `json:"client_type" validate:"required,oneof=person company"`
	ClientName   string     `json:"client_name" validate:"required,max=200"`
	Email        string     `json:"email" validate:"required,email,max=200"`
	Phone        string     `json:"phone" validate:"required,max=40"`
	Address      string     `json:"address" validate:"required,max=300"`
	CompanyName  string     `json:"company_name" validate:"required_if=ClientType company,max=200"`
	CompanyTaxID string     `json:"company_tax_id" validate:"required_if=ClientType company,max=40"`
	OfferingID   int64      `json:"offering_id" validate:"required,gt=0"`
	Description  string     `json:"description" validate:"max=2000"`
}

// AssignInput schedules a visit.
type AssignInput struct {
	TechnicianID int64  `json:"technician_id" validate:"required,gt=0"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,datetime=15:04"`
	TaskType     string `json:"task_type" validate:"required,oneof=survey installation maintenance"`
}

// StatusChangeInput is a technician's request for a new progress status.
type StatusChangeInput struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed needs_reschedule client_absent awaiting_materials"`
	Note   string `json:"note" validate:"required,max=1000"`
}

// ResolveInput approves or rejects a pending status request.
type ResolveInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=1000"`
}

// CloseInput closes a ticket manually.
type CloseInput struct {
	Status string `json:"status" validate:"required,oneof=completed finished cancelled client_absent"`
	Note   string `json:"note" validate:"max=1000"`
}

// EvidenceUpload is a file received from a technician.
type EvidenceUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
