package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"music.mint/internal/models"
)

var (
	ErrLocked = errors.New("snapshot is locked by another process")
	// ErrCorrupt marks a snapshot that is not valid JSON or holds records
	// that could not be decoded.
	ErrCorrupt = errors.New("corrupt snapshot")
)

// Store persists the whole mint registry as one snapshot. Save always
// replaces the previous snapshot; Load returns an empty slice when none exists.
//
// When some records fail to decode, Load returns the readable ones together
// with an error wrapping ErrCorrupt. Quarantine then moves the stored
// snapshot aside, untouched, and reports where it went.
type Store interface {
	Load(ctx context.Context) ([]*models.Mint, error)
	Save(ctx context.Context, mints []*models.Mint) error
	Quarantine(ctx context.Context) (string, error)
	Close() error
}

func encode(mints []*models.Mint) ([]byte, error) {
	if mints == nil {
		mints = []*models.Mint{}
	}
	data, err := json.MarshalIndent(mints, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]*models.Mint, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	mints := make([]*models.Mint, 0, len(records))
	var bad []error
	for i, rec := range records {
		var m models.Mint
		if err := json.Unmarshal(rec, &m); err != nil {
			bad = append(bad, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		mints = append(mints, &m)
	}
	if len(bad) > 0 {
		return mints, fmt.Errorf("%w: %d of %d records unreadable: %w", ErrCorrupt, len(bad), len(records), errors.Join(bad...))
	}
	return mints, nil
}

func quarantineSuffix(now time.Time) string {
	return "corrupt-" + strconv.FormatInt(now.UnixMilli(), 10)
}
