package model

import (
	"strings"
	"time"
)

// ApplicationStatus is an admin-controlled stage of an application. The set
// of valid statuses is configurable; these are the defaults.
type ApplicationStatus string

const (
	StatusInProgress          ApplicationStatus = "Application_In_Progress"
	StatusSubmitted           ApplicationStatus = "Application_Submitted"
	StatusConditionalOffer    ApplicationStatus = "Conditional_Offer"
	StatusUnconditionalOffer  ApplicationStatus = "Unconditional_Offer"
	StatusOfferAccepted       ApplicationStatus = "Offer_Accepted"
	StatusVisaApplied         ApplicationStatus = "Visa_Applied"
	StatusVisaGranted         ApplicationStatus = "Visa_Granted"
	StatusVisaRefused         ApplicationStatus = "Visa_Refused"
	StatusEnrolled            ApplicationStatus = "Enrolled"
	StatusApplicationRejected ApplicationStatus = "Application_Rejected"
)

// DefaultStatuses is the status catalogue used when none is configured.
// The first entry is the status new applications start in.
var DefaultStatuses = []ApplicationStatus{
	StatusInProgress,
	StatusSubmitted,
	StatusConditionalOffer,
	StatusUnconditionalOffer,
	StatusOfferAccepted,
	StatusVisaApplied,
	StatusVisaGranted,
	StatusVisaRefused,
	StatusEnrolled,
	StatusApplicationRejected,
}

// Priority is the counselor-controlled urgency of an application.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Intake is the month an application targets.
type Intake string

// Months lists the valid intake values.
var Months = []Intake{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// ParseIntake normalizes a month name into an Intake.
func ParseIntake(s string) (Intake, bool) {
	v := Intake(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Months {
		if v == m {
			return v, true
		}
	}
	return "", false
}

// PaymentState is the derived position of an application in the payment sub-flow.
type PaymentState string

const (
	PaymentNoDocument       PaymentState = "NO_DOCUMENT"
	PaymentDocumentUploaded PaymentState = "DOCUMENT_UPLOADED"
	PaymentVerified         PaymentState = "VERIFIED"
)

// CourseRef is the course an application is for, with its fee.
type CourseRef struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ApplicationFee float64 `json:"applicationFee"`
}

// UniversityRef is the university the course belongs to.
type UniversityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Application is a student's request to enroll in one course at one intake.
type Application struct {
	ID                string            `json:"id"`
	StudentID         string            `json:"studentId"`
	Course            CourseRef         `json:"course"`
	University        UniversityRef     `json:"university"`
	Intake            Intake            `json:"intake"`
	Year              int               `json:"year"`
	Status            ApplicationStatus `json:"status"`
	Priority          *Priority         `json:"priority"`
	PaymentDocument   *StoredFile       `json:"paymentDocument"`
	PaymentVerifiedAt *time.Time        `json:"paymentVerifiedAt"`
	Conversations     []Conversation    `json:"conversations,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// PaymentState derives the payment sub-flow state from the stored fields.
func (a *Application) PaymentState() PaymentState {
	switch {
	case a.PaymentDocument == nil:
		return PaymentNoDocument
	case a.PaymentVerifiedAt == nil:
		return PaymentDocumentUploaded
	default:
		return PaymentVerified
	}
}

// Clone returns a copy that shares no pointers with a.
func (a *Application) Clone() *Application {
	c := *a
	if a.Priority != nil {
		p := *a.Priority
		c.Priority = &p
	}
	if a.PaymentDocument != nil {
		d := *a.PaymentDocument
		c.PaymentDocument = &d
	}
	if a.PaymentVerifiedAt != nil {
		t := *a.PaymentVerifiedAt
		c.PaymentVerifiedAt = &t
	}
	if a.Conversations != nil {
		c.Conversations = append([]Conversation(nil), a.Conversations...)
	}
	return &c
}

// SelectOption is the {value, label} pair the application form submits for
// its course and university pickers.
type SelectOption struct {
	Value string `json:"value" binding:"required"`
	Label string `json:"label" binding:"omitempty"`
}

// CreateApplicationRequest is the payload of the New Application flow.
type CreateApplicationRequest struct {
	StudentID  string       `json:"studentId" binding:"required,uuid"`
	Course     SelectOption `json:"course" binding:"required"`
	University SelectOption `json:"university" binding:"required"`
	Intake     string       `json:"intake" binding:"required,intake"`
	Year       string       `json:"year" binding:"required,academic_year"`
}

// UpdateStatusRequest moves an application to another status.
type UpdateStatusRequest struct {
	Status ApplicationStatus `json:"status" binding:"required"`
}

// UpdatePriorityRequest sets an application's priority.
type UpdatePriorityRequest struct {
	Priority Priority `json:"priority" binding:"required,oneof=LOW MEDIUM HIGH"`
}

// UploadPaymentRequest attaches an already-stored file as payment proof.
type UploadPaymentRequest struct {
	PaymentDocument StoredFile `json:"paymentDocument" binding:"required"`
}
