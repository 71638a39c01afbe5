package domain

import (
	"encoding/json"
	"time"
)

// Contact represents one known person/profile collected from inbound
// webhook deliveries. Email and LinkedInURL are each unique when present;
// a contact always carries at least one of the two.
type Contact struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Title       string          `json:"title" db:"title"`
	Company     string          `json:"company" db:"company"`
	Location    string          `json:"location" db:"location"`
	Email       string          `json:"email,omitempty" db:"email"`
	LinkedInURL string          `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Website     string          `json:"website,omitempty" db:"website"`
	WebsiteText string          `json:"website_text,omitempty" db:"website_text"`
	ProfileData string          `json:"profile_data,omitempty" db:"profile_data"`
	RawJSON     json.RawMessage `json:"raw_json,omitempty" db:"raw_json"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// HasIdentifier reports whether the contact carries at least one unique key.
func (c Contact) HasIdentifier() bool {
	return c.Email != "" || c.LinkedInURL != ""
}

// WebhookLog is the audit record for one inbound webhook delivery. One row
// is written per delivery regardless of whether a contact was touched.
// ReceiptID is a per-delivery reference safe to hand back to callers.
type WebhookLog struct {
	LogID           int64           `json:"log_id" db:"log_id"`
	ReceiptID       string          `json:"receipt_id" db:"receipt_id"`
	EventType       string          `json:"event_type" db:"event_type"`
	ContactEmail    string          `json:"contact_email,omitempty" db:"contact_email"`
	ContactName     string          `json:"contact_name,omitempty" db:"contact_name"`
	LinkedInURL     string          `json:"linkedin_url,omitempty" db:"linkedin_url"`
	WebhookData     json.RawMessage `json:"webhook_data,omitempty" db:"webhook_data"`
	ReceivedAt      time.Time       `json:"received_at" db:"received_at"`
	Processed       bool            `json:"processed" db:"processed"`
	ContactID       *int64          `json:"contact_id,omitempty" db:"contact_id"`
	ProcessingNotes string          `json:"processing_notes,omitempty" db:"processing_notes"`
}

// EventTypeLinkedInData is the event category label for profile payloads
// delivered by the LinkedIn collector extension.
const EventTypeLinkedInData = "linkedin_data"
