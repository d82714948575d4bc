package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// ResultsArchive writes a finalized tournament's results as one JSON object.
type ResultsArchive struct {
	store  ObjectStore
	prefix string
}

func NewResultsArchive(store ObjectStore) *ResultsArchive {
	return &ResultsArchive{store: store, prefix: "tournaments"}
}

// Key names the object for a tournament. The id keeps keys unique when two
// tournaments share a slug.
func (a *ResultsArchive) Key(slug string, tournamentID int) string {
	return fmt.Sprintf("%s/%d-%s/results.json", a.prefix, tournamentID, slug)
}

// Save uploads v under the tournament's key and returns its public URL, which
// is empty when the bucket has no public base.
func (a *ResultsArchive) Save(ctx context.Context, slug string, tournamentID int, v interface{}) (string, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results of tournament %d: %w", tournamentID, err)
	}
	res, err := a.store.Put(ctx, a.Key(slug, tournamentID), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return res.Location, nil
}
