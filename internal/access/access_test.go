package access

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music.mint/internal/keypair"
	"music.mint/internal/models"
	"music.mint/internal/registry"
	"music.mint/internal/store"
)

var fixedNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*registry.Registry, *Gate) {
	t.Helper()
	reg := registry.New(context.Background(), store.NewMemoryStore(), nil)
	g := NewGate(reg)
	g.now = func() time.Time { return fixedNow }
	return reg, g
}

func addMint(t *testing.T, reg *registry.Registry, id string, open *time.Time) *models.Mint {
	t.Helper()
	kp, err := keypair.Generate()
	require.NoError(t, err)
	m := &models.Mint{
		ID:            id,
		CreatorWallet: "So11111111111111111111111111111111111111112",
		MintPrice:     decimal.NewFromInt(2),
		PageTitle:     "page",
		PageImageURL:  "/uploads/page-" + id + ".jpg",
		Title:         "asset",
		ImageURL:      "/uploads/cover-" + id + ".jpg",
		MusicURL:      "/uploads/song-" + id + ".mp3",
		VideoURL:      "/uploads/" + id + "-video.mp4",
		OpenTime:      open,
		Keypair:       kp,
		CreatedAt:     fixedNow.Add(-time.Hour),
	}
	require.NoError(t, reg.Create(context.Background(), m))
	return m
}

func TestCheckFile(t *testing.T) {
	reg, g := setup(t)
	addMint(t, reg, "1", nil)
	addMint(t, reg, "2", nil)
	require.NoError(t, reg.MarkMinted(context.Background(), "2", "sig"))

	tests := []struct {
		name string
		file string
		want error
	}{
		{"metadata always public", "metadata-1-1759096431894.json", nil},
		{"unknown metadata still public", "metadata-anything.json", nil},
		{"page image of unminted", "page-1.jpg", nil},
		{"page image of minted", "page-2.jpg", nil},
		{"unminted cover", "cover-1.jpg", ErrNotMinted},
		{"unminted audio", "song-1.mp3", ErrNotMinted},
		{"unminted video", "1-video.mp4", ErrNotMinted},
		{"minted cover", "cover-2.jpg", nil},
		{"minted audio", "song-2.mp3", nil},
		{"minted video", "2-video.mp4", nil},
		{"unknown file", "random.png", ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckFile(tt.file)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCheckFile_PageImageSharedWithAsset(t *testing.T) {
	reg, g := setup(t)
	m := addMint(t, reg, "3", nil)

	// A second mint uses the first mint's cover as its landing page image.
	kp, err := keypair.Generate()
	require.NoError(t, err)
	require.NoError(t, reg.Create(context.Background(), &models.Mint{
		ID:           "4",
		PageImageURL: m.ImageURL,
		ImageURL:     "/uploads/other.jpg",
		Keypair:      kp,
	}))

	assert.NoError(t, g.CheckFile("cover-3.jpg"))
}

func TestReveal(t *testing.T) {
	reg, g := setup(t)
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Minute)

	open := addMint(t, reg, "open", &past)
	addMint(t, reg, "closed", &future)
	noTime := addMint(t, reg, "always", nil)

	got, err := g.Reveal("open")
	require.NoError(t, err)
	assert.Equal(t, open.Keypair, got.Keypair)
	wantAddr, err := keypair.Address(open.Keypair)
	require.NoError(t, err)
	assert.Equal(t, wantAddr, got.AssetPubkey)

	// Repeatable, and reveal never marks the mint.
	again, err := g.Reveal("open")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	rec, err := reg.Get("open")
	require.NoError(t, err)
	assert.False(t, rec.Minted)

	got, err = g.Reveal("always")
	require.NoError(t, err)
	assert.Equal(t, noTime.Keypair, got.Keypair)

	_, err = g.Reveal("closed")
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = g.Reveal("missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	require.NoError(t, reg.MarkMinted(context.Background(), "open", "sig"))
	_, err = g.Reveal("open")
	assert.ErrorIs(t, err, ErrAlreadyMinted)
}

func TestReveal_OpenTimeBoundary(t *testing.T) {
	reg, g := setup(t)
	exact := fixedNow
	addMint(t, reg, "edge", &exact)

	_, err := g.Reveal("edge")
	assert.NoError(t, err)
}
