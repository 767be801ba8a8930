// Copyright (c) 2026 Tebeo. All rights reserved.

/*
Package comics implements the personal comic collection domain.

It covers the full lifecycle of a collected item: ISBN validation, creation
from resolved catalog metadata, owner-scoped retrieval and mutation, the
pending/read state machine with its popularity accounting, and the public
most-popular view.

# Architecture

  - Service: Orchestrates validation, catalog resolution, and persistence.
  - Repository: Consumer-defined data access contract, implemented on Postgres.
  - MetadataResolver: Consumer-defined catalog lookup contract, implemented
    by internal/catalog against Open Library.
*/
package comics

import "time"

// Status represents the reading state of a collected comic.
type Status string

const (
	// StatusPending is the initial state of every created item.
	StatusPending Status = "pending"
	// StatusRead marks the item as read. Every transition INTO this state
	// increments the item's popularity counter.
	StatusRead Status = "read"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRead:
		return true
	}
	return false
}

// Comic is the central entity of the collection domain.
//
// # Invariants
//
//   - ISBN is always the canonical hyphen-free 10- or 13-digit form.
//   - OwnerID is set once at creation and never changes; every non-public
//     read and mutation is scoped by it.
//   - Popularity starts at 0 and only ever increases, and only as a side
//     effect of a status transition into [StatusRead].
type Comic struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Publishers []string  `json:"publishers"`
	Year       *int      `json:"year"` // nil when the catalog had no parseable year.
	ISBN       string    `json:"isbn"`
	Status     Status    `json:"status"`
	Popularity int       `json:"popularity"`
	OwnerID    string    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PublicComic is the projection exposed by the unauthenticated most-popular
// view. It deliberately carries no owner or reading-state information.
type PublicComic struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Popularity int      `json:"popularity"`
}

// BookMetadata is the bibliographic record produced by a catalog resolution.
//
// Title is always present; everything else is best-effort.
type BookMetadata struct {
	Title      string
	Authors    []string
	Publishers []string
	Year       *int
}

// Filter holds the parameters for a filtered collection query.
type Filter struct {
	// TitleSubstring matches case-insensitively as a substring when non-empty.
	TitleSubstring string
}

// FieldChanges is a partial update of a comic's descriptive fields.
//
// A nil pointer means "leave this field untouched" — supplied fields
// overwrite, absent fields are preserved. This is an explicit partial update,
// never a blind overwrite.
type FieldChanges struct {
	Title      *string
	Authors    *[]string
	Publishers *[]string
	Year       *int
	ISBN       *string
}

// IsEmpty reports whether no field was supplied at all.
func (c FieldChanges) IsEmpty() bool {
	return c.Title == nil && c.Authors == nil && c.Publishers == nil &&
		c.Year == nil && c.ISBN == nil
}

// Global field names for validation in the comics domain.
const (
	FieldISBN   = "isbn"
	FieldTitle  = "title"
	FieldStatus = "status"
)
