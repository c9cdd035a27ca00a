package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music.mint/internal/keypair"
	"music.mint/internal/models"
)

func sampleMints(t *testing.T, n int) []*models.Mint {
	t.Helper()
	base := time.Date(2025, 9, 28, 12, 0, 0, 0, time.UTC)

	mints := make([]*models.Mint, 0, n)
	for i := 0; i < n; i++ {
		kp, err := keypair.Generate()
		require.NoError(t, err)

		created := base.Add(time.Duration(i) * time.Minute)
		m := &models.Mint{
			ID:            fmt.Sprintf("%d", created.UnixMilli()),
			CreatorWallet: "So11111111111111111111111111111111111111112",
			MintPrice:     decimal.RequireFromString(fmt.Sprintf("%d.5", i)),
			PageTitle:     fmt.Sprintf("page %d", i),
			PageImageURL:  fmt.Sprintf("/uploads/page-%d.jpg", i),
			Title:         fmt.Sprintf("track %d", i),
			ImageURL:      fmt.Sprintf("/uploads/cover-%d.jpg", i),
			MusicURL:      fmt.Sprintf("/uploads/track-%d.wav", i),
			VideoURL:      fmt.Sprintf("/uploads/%s-video.mp4", created.Format("150405")),
			Keypair:       kp,
			CreatedAt:     created,
		}
		if i%2 == 0 {
			open := created.Add(time.Hour)
			m.OpenTime = &open
		}
		if i%3 == 0 {
			m.Minted = true
			m.TxSignature = fmt.Sprintf("sig-%d", i)
		}
		mints = append(mints, m)
	}
	return mints
}

func assertSameMints(t *testing.T, want, got []*models.Mint) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.CreatorWallet, g.CreatorWallet)
		assert.True(t, w.MintPrice.Equal(g.MintPrice), "price %s != %s", w.MintPrice, g.MintPrice)
		assert.Equal(t, w.PageTitle, g.PageTitle)
		assert.Equal(t, w.PageImageURL, g.PageImageURL)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.ImageURL, g.ImageURL)
		assert.Equal(t, w.MusicURL, g.MusicURL)
		assert.Equal(t, w.VideoURL, g.VideoURL)
		assert.Equal(t, w.Keypair, g.Keypair)
		assert.Equal(t, w.Minted, g.Minted)
		assert.Equal(t, w.TxSignature, g.TxSignature)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		if w.OpenTime == nil {
			assert.Nil(t, g.OpenTime)
		} else {
			require.NotNil(t, g.OpenTime)
			assert.True(t, w.OpenTime.Equal(*g.OpenTime))
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "mints.json")
	ctx := context.Background()

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	empty, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleMints(t, 7)
	require.NoError(t, fs.Save(ctx, want))
	require.NoError(t, fs.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assertSameMints(t, want, got)
}

func TestFileStore_SaveReplacesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mints.json")
	ctx := context.Background()

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	defer fs.Close()

	mints := sampleMints(t, 3)
	require.NoError(t, fs.Save(ctx, mints))
	require.NoError(t, fs.Save(ctx, mints[:1]))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestFileStore_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mints.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	defer first.Close()

	_, err = NewFileStore(path)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestReadSnapshot_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mints.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadSnapshot(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecode_PartialRecords(t *testing.T) {
	good, err := encode(sampleMints(t, 2))
	require.NoError(t, err)
	var records []json.RawMessage
	require.NoError(t, json.Unmarshal(good, &records))
	records = append(records, json.RawMessage(`{"id":"x","mintPrice":"lots"}`))
	data, err := json.Marshal(records)
	require.NoError(t, err)

	got, err := decode(data)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "1 of 3 records")
	assert.Len(t, got, 2)
}

func TestFileStore_Quarantine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mints.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	defer fs.Close()

	_, err = fs.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)

	moved, err := fs.Quarantine(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `mints\.json\.corrupt-\d+$`, moved)

	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "[{", string(data))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_Quarantine(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStoreFrom([]byte("nope"))

	_, err := ms.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = ms.Quarantine(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("nope")}, ms.Quarantined())

	got, err := ms.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	got, err := ms.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	want := sampleMints(t, 4)
	require.NoError(t, ms.Save(ctx, want))
	assert.Equal(t, 1, ms.Saves())

	got, err = ms.Load(ctx)
	require.NoError(t, err)
	assertSameMints(t, want, got)

	// Decoded records are independent of the saved ones.
	got[0].Keypair[0] ^= 0xff
	again, err := ms.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[0].Keypair, again[0].Keypair)
}
