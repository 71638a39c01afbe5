// Package ingest extracts a canonical contact record from the loosely
// structured payloads posted by the browser extension. Field locations vary
// between extension versions (flat keys vs a nested contactInfo object), so
// extraction is a best-effort walk that never faults on missing or
// misshapen structure.
package ingest

import (
	"encoding/json"
)

// Record is the canonical, flat contact shape produced from one payload.
// Raw always holds the original payload verbatim for audit/provenance.
type Record struct {
	Name        string
	Title       string
	Company     string
	Location    string
	Email       string
	LinkedInURL string
	Website     string
	WebsiteText string
	ProfileData string
	Raw         json.RawMessage
}

// HasIdentifier reports whether the record carries a usable unique key.
// Records without one are logged but never persisted as contacts.
func (r Record) HasIdentifier() bool {
	return r.Email != "" || r.LinkedInURL != ""
}

// MatchKey returns the key type that reconciliation will use: email wins
// over the LinkedIn URL, and "none" means the delivery will be skipped.
func (r Record) MatchKey() string {
	switch {
	case r.Email != "":
		return "email"
	case r.LinkedInURL != "":
		return "linkedin_url"
	default:
		return "none"
	}
}

// Normalize extracts a canonical record from a decoded payload. The raw
// bytes are attached unmodified. Extraction rules:
//
//   - name, title, company, location, profileData: top-level strings
//   - email: contactInfo.email only (no fallback)
//   - linkedin URL: contactInfo.linkedinUrl, else top-level profileUrl
//   - website: first entry of contactInfo.websites ({url,text} pairs);
//     the rest are discarded
//
// Any absent, null, or unexpectedly shaped path yields an empty default.
func Normalize(payload map[string]interface{}, raw json.RawMessage) Record {
	rec := Record{
		Name:        stringField(payload, "name"),
		Title:       stringField(payload, "title"),
		Company:     stringField(payload, "company"),
		Location:    stringField(payload, "location"),
		ProfileData: stringField(payload, "profileData"),
		Raw:         raw,
	}

	info := objectField(payload, "contactInfo")
	rec.Email = stringField(info, "email")

	rec.LinkedInURL = stringField(info, "linkedinUrl")
	if rec.LinkedInURL == "" {
		rec.LinkedInURL = stringField(payload, "profileUrl")
	}

	if sites := listField(info, "websites"); len(sites) > 0 {
		first := asObject(sites[0])
		rec.Website = stringField(first, "url")
		rec.WebsiteText = stringField(first, "text")
	}

	return rec
}

// NormalizeBytes decodes raw JSON and normalizes it. A non-object payload
// (array, scalar, invalid JSON) is malformed input and returns an error;
// everything past decoding is fault-free.
func NormalizeBytes(raw []byte) (Record, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Record{}, err
	}
	return Normalize(payload, json.RawMessage(raw)), nil
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func objectField(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	return asObject(m[key])
}

func asObject(v interface{}) map[string]interface{} {
	o, _ := v.(map[string]interface{})
	return o
}

func listField(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	l, _ := m[key].([]interface{})
	return l
}
