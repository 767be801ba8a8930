// Copyright (c) 2026 Tebeo. All rights reserved.

package comics

import (
	"context"
	"log/slog"

	"github.com/tebeoapp/tebeo/internal/platform/apperr"
	"github.com/tebeoapp/tebeo/internal/platform/validate"
)

// MetadataResolver defines the catalog lookup contract consumed during
// creation. The concrete Open Library client lives in internal/catalog.
type MetadataResolver interface {
	// Resolve returns the bibliographic record for a normalized ISBN.
	//
	// Any failure — unknown ISBN, record without a title, catalog
	// unreachable — is a resolution failure; the distinction is not
	// preserved.
	Resolve(ctx context.Context, isbn string) (*BookMetadata, error)
}

// errComicNotFound is the single outcome for mutations whose target is
// missing OR owned by someone else. Merging the two avoids leaking whether an
// id exists to non-owners.
var errComicNotFound = apperr.NotFound("Comic")

// Service implements the collection use cases.
type Service struct {
	repo     Repository
	resolver MetadataResolver
	logger   *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(repo Repository, resolver MetadataResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
	}
}

// Create adds a new item to the caller's collection from a raw ISBN.
//
// The ISBN is validated before any network or storage call; a failed catalog
// resolution aborts the creation with no partial write. New items always
// start as [StatusPending] with zero popularity.
func (service *Service) Create(ctx context.Context, ownerID, rawISBN string) (*Comic, error) {
	if rawISBN == "" {
		return nil, validate.RequiredError(FieldISBN, "This field is required")
	}

	isbn, ok := NormalizeISBN(rawISBN)
	if !ok {
		return nil, validate.RequiredError(FieldISBN, "Must be a 10- or 13-digit ISBN (hyphens allowed)")
	}

	metadata, err := service.resolver.Resolve(ctx, isbn)
	if err != nil {
		// A missing record and an unreachable catalog are deliberately
		// reported the same way; see the resolver contract.
		service.logger.Warn("comic_resolution_failed",
			slog.String("isbn", isbn),
			slog.Any("error", err),
		)
		return nil, apperr.NotFoundMsg("No catalog record found for this ISBN")
	}

	comic := &Comic{
		Title:      metadata.Title,
		Authors:    metadata.Authors,
		Publishers: metadata.Publishers,
		Year:       metadata.Year,
		ISBN:       isbn,
		Status:     StatusPending,
		Popularity: 0,
		OwnerID:    ownerID,
	}

	if err := service.repo.Insert(ctx, comic); err != nil {
		return nil, err
	}

	service.logger.Info("comic_created",
		slog.String("comic_id", comic.ID),
		slog.String("isbn", isbn),
		slog.String("owner_id", ownerID),
	)
	return comic, nil
}

// List returns a page of the caller's collection and the filtered total.
func (service *Service) List(ctx context.Context, ownerID string, filter Filter, limit, offset int) ([]*Comic, int, error) {
	return service.repo.FindByOwner(ctx, ownerID, filter, limit, offset)
}

// Get returns a single owned item.
func (service *Service) Get(ctx context.Context, ownerID, comicID string) (*Comic, error) {
	comic, err := service.repo.FindByID(ctx, comicID, ownerID)
	if err != nil {
		return nil, errComicNotFound
	}
	return comic, nil
}

// UpdateStatus transitions an owned item between pending and read.
//
// # State machine
//
// pending→read increments popularity by exactly 1, atomically with the
// status write. read→pending leaves popularity untouched. Repeating a
// transition (read→read, pending→pending) is a valid, idempotent request:
// the status is rewritten and popularity is unaffected.
func (service *Service) UpdateStatus(ctx context.Context, ownerID, comicID, rawStatus string) (Status, error) {
	status := Status(rawStatus)
	if !status.IsValid() {
		return "", validate.RequiredError(FieldStatus, "Must be one of: read, pending")
	}

	// Popularity only moves on transitions INTO read. The repository gates
	// the increment on the previously stored status inside the same atomic
	// statement, so a read-on-read repeat cannot double-count and two
	// concurrent transitions cannot lose an update.
	matched, err := service.repo.SetStatus(ctx, comicID, ownerID, status, status == StatusRead)
	if err != nil {
		return "", err
	}
	if matched == 0 {
		return "", errComicNotFound
	}

	service.logger.Info("comic_status_updated",
		slog.String("comic_id", comicID),
		slog.String("status", string(status)),
	)
	return status, nil
}

// UpdateFields overwrites only the supplied descriptive fields of an owned item.
func (service *Service) UpdateFields(ctx context.Context, ownerID, comicID string, changes FieldChanges) error {
	if changes.IsEmpty() {
		return apperr.ValidationError("No fields to update")
	}

	validator := &validate.Validator{}
	if changes.Title != nil {
		validator.Required(FieldTitle, *changes.Title).MaxLen(FieldTitle, *changes.Title, 500)
	}
	if changes.ISBN != nil {
		isbn, ok := NormalizeISBN(*changes.ISBN)
		if !ok {
			validator.Custom(FieldISBN, true, "Must be a 10- or 13-digit ISBN (hyphens allowed)")
		} else {
			changes.ISBN = &isbn
		}
	}
	if err := validator.Err(); err != nil {
		return err
	}

	matched, err := service.repo.UpdateFields(ctx, comicID, ownerID, changes)
	if err != nil {
		return err
	}
	if matched == 0 {
		return errComicNotFound
	}

	service.logger.Info("comic_updated", slog.String("comic_id", comicID))
	return nil
}

// Delete removes an owned item.
func (service *Service) Delete(ctx context.Context, ownerID, comicID string) error {
	deleted, err := service.repo.Delete(ctx, comicID, ownerID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return errComicNotFound
	}

	service.logger.Warn("comic_deleted", slog.String("comic_id", comicID))
	return nil
}

// DefaultPublicTopLimit is the number of items in the public popularity view
// when no explicit limit is given.
const DefaultPublicTopLimit = 12

// PublicTop returns the highest-popularity items across all owners, in the
// owner-free public projection.
func (service *Service) PublicTop(ctx context.Context, limit int) ([]*PublicComic, error) {
	if limit <= 0 {
		limit = DefaultPublicTopLimit
	}
	return service.repo.TopByPopularity(ctx, limit)
}
