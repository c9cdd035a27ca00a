// Package access decides which stored files may be served and when a mint's
// secret keypair may be disclosed.
package access

import (
	"errors"
	"strings"
	"time"

	"music.mint/internal/keypair"
	"music.mint/internal/models"
	"music.mint/internal/registry"
)

// MetadataPrefix marks generated metadata documents, which are always public.
const MetadataPrefix = "metadata-"

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrNotMinted     = errors.New("file not accessible until NFT is minted")
	ErrNotOpen       = errors.New("mint not open yet")
	ErrAlreadyMinted = registry.ErrAlreadyMinted
)

// Lookup is the part of the registry the gates read.
type Lookup interface {
	Get(id string) (*models.Mint, error)
	OwnerOf(file string) (*models.Mint, bool)
	IsPageImage(file string) bool
}

type Gate struct {
	mints Lookup
	now   func() time.Time
}

func NewGate(mints Lookup) *Gate {
	return &Gate{mints: mints, now: time.Now}
}

// CheckFile returns nil when name may be served, ErrFileNotFound when no
// mint owns it and ErrNotMinted while its owner is unminted.
func (g *Gate) CheckFile(name string) error {
	if strings.HasPrefix(name, MetadataPrefix) {
		return nil
	}
	if g.mints.IsPageImage(name) {
		return nil
	}

	owner, ok := g.mints.OwnerOf(name)
	if !ok {
		return ErrFileNotFound
	}
	if !owner.Minted {
		return ErrNotMinted
	}
	return nil
}

// Revealed is the only view that carries the secret keypair.
type Revealed struct {
	Keypair     []byte
	AssetPubkey string
}

// Reveal discloses the keypair of an open, unminted mint. It never mutates
// the mint, so repeated calls return the same keypair.
func (g *Gate) Reveal(id string) (Revealed, error) {
	m, err := g.mints.Get(id)
	if err != nil {
		return Revealed{}, err
	}
	if m.Minted {
		return Revealed{}, ErrAlreadyMinted
	}
	if !m.IsOpen(g.now()) {
		return Revealed{}, ErrNotOpen
	}

	addr, err := keypair.Address(m.Keypair)
	if err != nil {
		return Revealed{}, err
	}
	return Revealed{Keypair: m.Keypair, AssetPubkey: addr}, nil
}
