// Copyright (c) 2026 Tebeo. All rights reserved.

// Package catalog resolves book metadata from the Open Library REST API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tebeoapp/tebeo/internal/comics"
	"github.com/tebeoapp/tebeo/pkg/pointer"
)

// ErrNotFound reports that the catalog has no usable record for an ISBN.
var ErrNotFound = errors.New("catalog: no record found")

const defaultTimeout = 10 * time.Second

// yearPattern extracts the first four-digit run from a free-form publish date
// such as "Oct 01, 1997" or "1997".
var yearPattern = regexp.MustCompile(`\d{4}`)

// Client talks to an Open Library compatible catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a catalog [Client] rooted at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// editionRecord mirrors the subset of the edition document the service needs.
type editionRecord struct {
	Title       string          `json:"title"`
	PublishDate string          `json:"publish_date"`
	Authors     []authorRef     `json:"authors"`
	Publishers  []publisherName `json:"publishers"`
}

type authorRef struct {
	Key string `json:"key"`
}

// publisherName tolerates both forms the catalog emits for a publisher
// entry: a bare string and an object with a name field.
type publisherName string

func (name *publisherName) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*name = publisherName(asString)
		return nil
	}

	var asObject struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return err
	}

	*name = publisherName(asObject.Name)
	return nil
}

type authorRecord struct {
	Name string `json:"name"`
}

// Resolve fetches the edition record for a normalized ISBN and hydrates the
// author names referenced by it. Author lookups run concurrently; ordering in
// the result matches the edition record, and a single failed lookup fails the
// whole resolution. A missing record, an unreachable catalog, and a record
// without a title all map to [ErrNotFound].
func (client *Client) Resolve(ctx context.Context, isbn string) (*comics.BookMetadata, error) {
	var edition editionRecord
	if err := client.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", isbn), &edition); err != nil {
		client.logger.WarnContext(ctx, "catalog edition lookup failed", slog.String("isbn", isbn), slog.Any("error", err))
		return nil, ErrNotFound
	}

	if edition.Title == "" {
		return nil, ErrNotFound
	}

	authors, err := client.resolveAuthors(ctx, edition.Authors)
	if err != nil {
		client.logger.WarnContext(ctx, "catalog author lookup failed", slog.String("isbn", isbn), slog.Any("error", err))
		return nil, ErrNotFound
	}

	metadata := &comics.BookMetadata{
		Title:   edition.Title,
		Authors: authors,
		Year:    extractYear(edition.PublishDate),
	}
	for _, publisher := range edition.Publishers {
		if publisher != "" {
			metadata.Publishers = append(metadata.Publishers, string(publisher))
		}
	}

	return metadata, nil
}

// resolveAuthors fetches every referenced author document concurrently and
// preserves the reference order. Any failure cancels the remaining lookups.
func (client *Client) resolveAuthors(ctx context.Context, refs []authorRef) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	names := make([]string, len(refs))
	group, groupCtx := errgroup.WithContext(ctx)
	for index, ref := range refs {
		group.Go(func() error {
			var author authorRecord
			if err := client.getJSON(groupCtx, ref.Key+".json", &author); err != nil {
				return err
			}
			names[index] = author.Name
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return names, nil
}

func (client *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting %s: unexpected status %d", path, response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}

func extractYear(publishDate string) *int {
	match := yearPattern.FindString(publishDate)
	if match == "" {
		return nil
	}

	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}

	return pointer.To(year)
}
