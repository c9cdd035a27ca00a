package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Mint struct {
	ID            string          `json:"id"`
	CreatorWallet string          `json:"creatorWallet"`
	MintPrice     decimal.Decimal `json:"mintPrice"`

	// Landing page, always public.
	PageTitle    string `json:"pageTitle"`
	PageText     string `json:"pageText,omitempty"`
	PageImageURL string `json:"pageImageUrl"`

	// Gated asset, served only once minted.
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
	MusicURL    string `json:"musicUrl"`
	VideoURL    string `json:"mp4Url"`

	OpenTime    *time.Time `json:"openTime"`
	Keypair     []byte     `json:"keypair"` // ed25519 secret key, seed || public key
	Minted      bool       `json:"minted"`
	TxSignature string     `json:"txSignature,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

var ErrInvalidOpenTime = errors.New("invalid open time")

var openTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseOpenTime accepts RFC 3339 or the zone-less datetime-local form,
// which is read as UTC. An empty value means no open time.
func ParseOpenTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range openTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidOpenTime, raw)
}

// UnmarshalJSON reads openTime in any form ParseOpenTime accepts, so
// snapshots holding raw datetime-local values still load.
func (m *Mint) UnmarshalJSON(data []byte) error {
	type plain Mint
	aux := struct {
		*plain
		OpenTime *string `json:"openTime"`
	}{plain: (*plain)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.OpenTime = nil
	if aux.OpenTime == nil {
		return nil
	}
	open, err := ParseOpenTime(*aux.OpenTime)
	if err != nil {
		return err
	}
	m.OpenTime = open
	return nil
}

// Clone returns a deep copy so callers never alias registry state.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	c := *m
	if m.OpenTime != nil {
		t := *m.OpenTime
		c.OpenTime = &t
	}
	if m.Keypair != nil {
		c.Keypair = append([]byte(nil), m.Keypair...)
	}
	return &c
}

// IsOpen reports whether the reveal window has started at now.
func (m *Mint) IsOpen(now time.Time) bool {
	return m.OpenTime == nil || !now.Before(*m.OpenTime)
}

// Summary is the list view: no keypair and no gated asset fields.
type Summary struct {
	ID            string          `json:"id"`
	CreatorWallet string          `json:"creatorWallet"`
	MintPrice     decimal.Decimal `json:"mintPrice"`
	PageTitle     string          `json:"pageTitle"`
	PageText      string          `json:"pageText,omitempty"`
	PageImageURL  string          `json:"pageImageUrl"`
	OpenTime      *time.Time      `json:"openTime"`
	Minted        bool            `json:"minted"`
	TxSignature   string          `json:"txSignature,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Detail is the single-mint view: everything except the keypair.
type Detail struct {
	Summary
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
	MusicURL    string `json:"musicUrl"`
	VideoURL    string `json:"mp4Url"`
}

func (m *Mint) Summary() Summary {
	s := Summary{
		ID:            m.ID,
		CreatorWallet: m.CreatorWallet,
		MintPrice:     m.MintPrice,
		PageTitle:     m.PageTitle,
		PageText:      m.PageText,
		PageImageURL:  m.PageImageURL,
		Minted:        m.Minted,
		TxSignature:   m.TxSignature,
		CreatedAt:     m.CreatedAt,
	}
	if m.OpenTime != nil {
		t := *m.OpenTime
		s.OpenTime = &t
	}
	return s
}

func (m *Mint) Detail() Detail {
	return Detail{
		Summary:     m.Summary(),
		Title:       m.Title,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		MusicURL:    m.MusicURL,
		VideoURL:    m.VideoURL,
	}
}
