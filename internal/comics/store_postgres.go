// Copyright (c) 2026 Tebeo. All rights reserved.

package comics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tebeoapp/tebeo/internal/platform/dberr"
	"github.com/tebeoapp/tebeo/pkg/uuid"
)

// PostgresRepository implements [Repository] using pgx.
//
// Authors and publishers are stored as text[] columns; pgx maps them to
// []string natively.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const comicColumns = `id, title, authors, publishers, year, isbn, status, popularity, ownerid, createdat, updatedat`

// Insert persists a new comic. The store assigns the id (time-sortable
// UUIDv7) and both timestamps.
func (repository *PostgresRepository) Insert(ctx context.Context, c *Comic) error {
	const query = `
		INSERT INTO core.comic (` + comicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Authors,
		c.Publishers,
		c.Year,
		c.ISBN,
		c.Status,
		c.Popularity,
		c.OwnerID,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return dberr.Wrap(err, "insert_comic")
}

// FindByID returns the comic matching both id and owner.
func (repository *PostgresRepository) FindByID(ctx context.Context, id, ownerID string) (*Comic, error) {
	const query = `
		SELECT ` + comicColumns + `
		FROM core.comic
		WHERE id = $1 AND ownerid = $2`

	c := &Comic{}
	err := repository.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&c.ID, &c.Title, &c.Authors, &c.Publishers, &c.Year, &c.ISBN,
		&c.Status, &c.Popularity, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "find_comic")
	}

	return c, nil
}

// FindByOwner returns a page of the owner's collection plus the filtered total.
func (repository *PostgresRepository) FindByOwner(ctx context.Context, ownerID string, f Filter, limit, offset int) ([]*Comic, int, error) {
	query := `
		SELECT ` + comicColumns + `
		FROM core.comic
		WHERE ownerid = $1`
	countQuery := `SELECT count(*) FROM core.comic WHERE ownerid = $1`

	args := []any{ownerID}
	countArgs := []any{ownerID}

	if f.TitleSubstring != "" {
		searchTerm := "%" + f.TitleSubstring + "%"
		query += ` AND title ILIKE $2`
		countQuery += ` AND title ILIKE $2`
		args = append(args, searchTerm)
		countArgs = append(countArgs, searchTerm)
	}

	query += ` ORDER BY createdat DESC, id DESC LIMIT $` + itos(len(args)+1) + ` OFFSET $` + itos(len(args)+2)
	args = append(args, limit, offset)

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_comics")
	}

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_comics")
	}
	defer rows.Close()

	var items []*Comic
	for rows.Next() {
		c := &Comic{}
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Authors, &c.Publishers, &c.Year, &c.ISBN,
			&c.Status, &c.Popularity, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_comic")
		}
		items = append(items, c)
	}

	return items, total, nil
}

// UpdateFields builds an UPDATE that touches only the supplied fields.
//
// Absent fields never appear in the SET clause, so a partial payload cannot
// blank out the rest of the row.
func (repository *PostgresRepository) UpdateFields(ctx context.Context, id, ownerID string, changes FieldChanges) (int64, error) {
	setClauses := []string{"updatedat = NOW()"}
	args := []any{id, ownerID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Title != nil {
		appendSet("title", *changes.Title)
	}
	if changes.Authors != nil {
		appendSet("authors", *changes.Authors)
	}
	if changes.Publishers != nil {
		appendSet("publishers", *changes.Publishers)
	}
	if changes.Year != nil {
		appendSet("year", *changes.Year)
	}
	if changes.ISBN != nil {
		appendSet("isbn", *changes.ISBN)
	}

	query := fmt.Sprintf(`
		UPDATE core.comic
		SET %s
		WHERE id = $1 AND ownerid = $2`,
		strings.Join(setClauses, ", "),
	)

	cmd, err := repository.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, dberr.Wrap(err, "update_comic")
	}

	return cmd.RowsAffected(), nil
}

// SetStatus persists the status and conditionally increments popularity in
// one atomic statement.
//
// The CASE expression reads the OLD row value of status, so the counter only
// moves on an actual transition into read — never on a read-on-read repeat.
// RowsAffected counts MATCHED rows: an update that rewrites an identical
// status still matches, which keeps repeated transitions idempotent from the
// caller's point of view.
func (repository *PostgresRepository) SetStatus(ctx context.Context, id, ownerID string, status Status, incrementPopularity bool) (int64, error) {
	const query = `
		UPDATE core.comic
		SET popularity = popularity + (CASE WHEN $4::bool AND status <> $3 THEN 1 ELSE 0 END),
		    status = $3,
		    updatedat = NOW()
		WHERE id = $1 AND ownerid = $2`

	cmd, err := repository.pool.Exec(ctx, query, id, ownerID, status, incrementPopularity)
	if err != nil {
		return 0, dberr.Wrap(err, "set_comic_status")
	}

	return cmd.RowsAffected(), nil
}

// Delete removes the comic matching (id, ownerID).
func (repository *PostgresRepository) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	const query = `DELETE FROM core.comic WHERE id = $1 AND ownerid = $2`

	cmd, err := repository.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return 0, dberr.Wrap(err, "delete_comic")
	}

	return cmd.RowsAffected(), nil
}

// TopByPopularity returns the public projection across all owners.
//
// Ties in popularity are broken by id ascending so the result is reproducible.
func (repository *PostgresRepository) TopByPopularity(ctx context.Context, limit int) ([]*PublicComic, error) {
	const query = `
		SELECT id, title, authors, popularity
		FROM core.comic
		ORDER BY popularity DESC, id ASC
		LIMIT $1`

	rows, err := repository.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "top_comics")
	}
	defer rows.Close()

	var items []*PublicComic
	for rows.Next() {
		c := &PublicComic{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Authors, &c.Popularity); err != nil {
			return nil, dberr.Wrap(err, "scan_top_comic")
		}
		items = append(items, c)
	}

	return items, nil
}

func itos(i int) string {
	return strconv.Itoa(i)
}
