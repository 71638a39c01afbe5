// Package contact implements the upsert reconciler for inbound contact
// payloads.
//
// Given a canonical record from the ingest normalizer, the service decides
// whether it matches an existing stored contact (by email first, then by
// LinkedIn profile URL), performs the insert-or-update, and finalizes the
// delivery audit log, all inside one database transaction, so a delivery
// either lands completely or not at all.
//
// The service layer contains the matching/merge business logic and depends
// on the Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package contact
