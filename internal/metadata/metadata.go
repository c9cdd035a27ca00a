// Package metadata builds the off-chain JSON document an NFT points at.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"music.mint/internal/access"
	"music.mint/internal/models"
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

type Properties struct {
	Files    []File `json:"files"`
	Category string `json:"category"`
}

type Document struct {
	Name                 string      `json:"name"`
	Symbol               string      `json:"symbol"`
	Description          string      `json:"description"`
	SellerFeeBasisPoints int         `json:"seller_fee_basis_points"`
	Image                string      `json:"image"`
	AnimationURL         string      `json:"animation_url"`
	ExternalURL          string      `json:"external_url"`
	Attributes           []Attribute `json:"attributes"`
	Properties           Properties  `json:"properties"`
}

// Input carries the caller-supplied display fields.
type Input struct {
	Name        string
	Image       string // path relative to the public URL, e.g. /uploads/x.jpg
	Description string
}

type Builder struct {
	publicURL  string
	symbol     string
	royaltyBPS int
	dir        string
	now        func() time.Time
}

func NewBuilder(publicURL, symbol string, royaltyBPS int, dir string) *Builder {
	return &Builder{
		publicURL:  strings.TrimRight(publicURL, "/"),
		symbol:     symbol,
		royaltyBPS: royaltyBPS,
		dir:        dir,
		now:        time.Now,
	}
}

func (b *Builder) Build(m *models.Mint, in Input) Document {
	video := b.publicURL + m.VideoURL
	return Document{
		Name:                 in.Name,
		Symbol:               b.symbol,
		Description:          in.Description,
		SellerFeeBasisPoints: b.royaltyBPS,
		Image:                b.publicURL + in.Image,
		AnimationURL:         video,
		ExternalURL:          b.publicURL,
		Attributes: []Attribute{
			{TraitType: "Type", Value: "Music NFT"},
			{TraitType: "Creator", Value: m.CreatorWallet},
			{TraitType: "Price", Value: m.MintPrice.String() + " SOL"},
		},
		Properties: Properties{
			Files:    []File{{URI: video, Type: "video/mp4"}},
			Category: "video",
		},
	}
}

// Write builds the document, stores it as metadata-<mint>-<unixms>.json and
// returns its public URL.
func (b *Builder) Write(m *models.Mint, in Input) (string, error) {
	doc := b.Build(m, in)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	name := fmt.Sprintf("%s%s-%s.json", access.MetadataPrefix, m.ID, strconv.FormatInt(b.now().UnixMilli(), 10))
	if err := os.WriteFile(filepath.Join(b.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}
	return b.publicURL + "/uploads/" + name, nil
}
