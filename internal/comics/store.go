// Copyright (c) 2026 Tebeo. All rights reserved.

package comics

import "context"

// Repository defines the data access contract for the comics domain.
//
// # Architecture
//
// The interface lives in the domain package because the service layer (the
// consumer) defines what it needs; the Postgres implementation lives next to
// it in store_postgres.go.
//
// Every operation except [Repository.TopByPopularity] is scoped by an explicit
// owner filter. A mutation that matches neither id nor owner reports zero
// affected rows — the two cases are indistinguishable to callers.
type Repository interface {
	// Insert persists a new comic and assigns its identifier and timestamps.
	Insert(ctx context.Context, c *Comic) error

	// FindByID returns the comic with the given id and owner.
	//
	// It returns a not-found error when the row is absent or owned by
	// someone else.
	FindByID(ctx context.Context, id, ownerID string) (*Comic, error)

	// FindByOwner returns a filtered, paginated slice of the owner's comics
	// and the total count of the filtered set (not the whole collection).
	FindByOwner(ctx context.Context, ownerID string, f Filter, limit, offset int) ([]*Comic, int, error)

	// UpdateFields overwrites only the supplied fields of the comic matching
	// (id, ownerID) and returns the number of matched rows.
	UpdateFields(ctx context.Context, id, ownerID string, changes FieldChanges) (int64, error)

	// SetStatus persists the new status and, when incrementPopularity is set
	// AND the stored status actually changes, increments the popularity
	// counter in the SAME single statement.
	//
	// The atomicity matters twice over: concurrent transitions must not lose
	// an increment (no read-modify-write cycle), and a repeated read-on-read
	// request must not double-count.
	SetStatus(ctx context.Context, id, ownerID string, status Status, incrementPopularity bool) (int64, error)

	// Delete removes the comic matching (id, ownerID) and returns the number
	// of deleted rows.
	Delete(ctx context.Context, id, ownerID string) (int64, error)

	// TopByPopularity returns up to limit items across ALL owners, ordered by
	// popularity descending with id as the deterministic tie-break, projected
	// to the public shape.
	TopByPopularity(ctx context.Context, limit int) ([]*PublicComic, error)
}
