package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"music.mint/config"
	"music.mint/internal/access"
	"music.mint/internal/keypair"
	"music.mint/internal/logging"
	"music.mint/internal/media"
	"music.mint/internal/metadata"
	"music.mint/internal/models"
	"music.mint/internal/registry"
	"music.mint/internal/upload"
	"music.mint/internal/validate"
	"music.mint/web"
)

// Composer renders the mint video.
type Composer interface {
	Compose(ctx context.Context, req media.ComposeRequest) (string, error)
}

type Handler struct {
	mints    *registry.Registry
	composer Composer
	uploads  *upload.Receiver
	gate     *access.Gate
	meta     *metadata.Builder
	config   *config.Config
	logger   *slog.Logger
	maxPrice decimal.Decimal
	now      func() time.Time
}

type Deps struct {
	Registry *registry.Registry
	Composer Composer
	Uploads  *upload.Receiver
	Logger   *slog.Logger
}

func NewHandler(d Deps, cfg *config.Config) (*Handler, error) {
	maxPrice, err := cfg.MaxPrice()
	if err != nil {
		return nil, err
	}
	return &Handler{
		mints:    d.Registry,
		composer: d.Composer,
		uploads:  d.Uploads,
		gate:     access.NewGate(d.Registry),
		meta:     metadata.NewBuilder(cfg.Server.PublicURL, cfg.Mint.Symbol, cfg.Mint.RoyaltyBPS, d.Uploads.Dir()),
		config:   cfg,
		logger:   logging.NewComponentLogger(d.Logger, "api"),
		maxPrice: maxPrice,
		now:      time.Now,
	}, nil
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

type CreateMintRequest struct {
	CreatorWallet string           `json:"creatorWallet"`
	MintPrice     *decimal.Decimal `json:"mintPrice"`
	PageTitle     string           `json:"pageTitle"`
	PageText      string           `json:"pageText"`
	PageImageURL  string           `json:"pageImageUrl"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	ImageURL      string           `json:"imageUrl"`
	MusicURL      string           `json:"musicUrl"`
	OpenTime      string           `json:"openTime"`
}

type CreateMintResponse struct {
	Success     bool   `json:"success"`
	MintID      string `json:"mintId"`
	AssetPubkey string `json:"assetPubkey"`
}

type ListMintsResponse struct {
	Success bool             `json:"success"`
	Mints   []models.Summary `json:"mints"`
}

type GetMintResponse struct {
	Success bool          `json:"success"`
	Mint    models.Detail `json:"mint"`
}

// MetadataRequest has no animation URL: the document always points at the
// mint's own video.
type MetadataRequest struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	MintID      string `json:"mintId"`
}

type MetadataResponse struct {
	Success     bool   `json:"success"`
	MetadataURL string `json:"metadataUrl"`
}

type KeypairResponse struct {
	Success     bool   `json:"success"`
	Keypair     []int  `json:"keypair"` // byte values, as wallets load secret keys
	AssetPubkey string `json:"assetPubkey"`
}

type MarkMintedRequest struct {
	TxSignature string `json:"txSignature"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

var errMissingFields = errors.New("missing required fields")

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, "image", "No image file provided")
}

func (h *Handler) UploadMusic(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, "music", "No music file provided")
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request, field, missing string) {
	stored, err := h.uploads.Receive(w, r, field)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			h.error(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, upload.ErrNoFile):
			h.error(w, http.StatusBadRequest, missing)
		default:
			h.logger.Error("upload failed", logging.String("field", field), logging.Error(err))
			h.error(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	h.logger.Info("file uploaded",
		logging.String("field", field),
		logging.String("filename", stored.Filename),
		logging.Int64("size", stored.Size),
	)
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Path: stored.Path, Filename: stored.Filename})
}

func (h *Handler) CreateMint(w http.ResponseWriter, r *http.Request) {
	var req CreateMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := h.validateCreate(req)
	if err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	imagePath, err := h.uploads.Resolve(req.ImageURL)
	if err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}
	musicPath, err := h.uploads.Resolve(req.MusicURL)
	if err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	id := h.mints.AllocateID(now)
	created := false
	defer func() {
		if !created {
			h.mints.Release(id)
		}
	}()

	kp, err := keypair.Generate()
	if err != nil {
		h.handleError(w, err)
		return
	}
	pubkey, err := keypair.Address(kp)
	if err != nil {
		h.handleError(w, err)
		return
	}

	videoName := id + "-video.mp4"
	videoPath, err := h.uploads.Resolve(videoName)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("generating video", logging.String("mint_id", id))
	if _, err := h.composer.Compose(r.Context(), media.ComposeRequest{
		AudioPath:  musicPath,
		ImagePath:  imagePath,
		OutputPath: videoPath,
	}); err != nil {
		h.logger.Error("video generation failed", logging.String("mint_id", id), logging.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, media.ErrSourceNotFound) {
			status = http.StatusBadRequest
		}
		h.error(w, status, "MP4 generation failed: "+err.Error())
		return
	}

	mint := &models.Mint{
		ID:            id,
		CreatorWallet: strings.TrimSpace(req.CreatorWallet),
		MintPrice:     in.price,
		PageTitle:     req.PageTitle,
		PageText:      req.PageText,
		PageImageURL:  req.PageImageURL,
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MusicURL:      req.MusicURL,
		VideoURL:      upload.URLPrefix + videoName,
		OpenTime:      in.openTime,
		Keypair:       kp,
		CreatedAt:     now.UTC(),
	}
	if err := h.mints.Create(r.Context(), mint); err != nil {
		h.handleError(w, err)
		return
	}
	created = true

	writeJSON(w, http.StatusCreated, CreateMintResponse{Success: true, MintID: id, AssetPubkey: pubkey})
}

type validCreate struct {
	price    decimal.Decimal
	openTime *time.Time
}

func (h *Handler) validateCreate(req CreateMintRequest) (validCreate, error) {
	for _, v := range []string{req.PageTitle, req.PageImageURL, req.Title, req.ImageURL, req.MusicURL, req.CreatorWallet} {
		if strings.TrimSpace(v) == "" {
			return validCreate{}, errMissingFields
		}
	}
	if err := validate.Address(req.CreatorWallet); err != nil {
		return validCreate{}, validate.ErrInvalidAddress
	}
	price, err := validate.Price(req.MintPrice, h.maxPrice)
	if err != nil {
		return validCreate{}, err
	}
	openTime, err := models.ParseOpenTime(req.OpenTime)
	if err != nil {
		return validCreate{}, err
	}
	return validCreate{price: price, openTime: openTime}, nil
}

func (h *Handler) ListMints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListMintsResponse{Success: true, Mints: h.mints.ListPublic()})
}

func (h *Handler) GetMint(w http.ResponseWriter, r *http.Request) {
	detail, err := h.mints.Detail(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetMintResponse{Success: true, Mint: detail})
}

func (h *Handler) CreateMetadata(w http.ResponseWriter, r *http.Request) {
	var req MetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mint, err := h.mints.Get(req.MintID)
	if err != nil || mint.Minted {
		h.error(w, http.StatusBadRequest, "Invalid mint or already processed")
		return
	}

	url, err := h.meta.Write(mint, metadata.Input{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MetadataResponse{Success: true, MetadataURL: url})
}

func (h *Handler) RevealKeypair(w http.ResponseWriter, r *http.Request) {
	revealed, err := h.gate.Reveal(chi.URLParam(r, "mintId"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	kp := make([]int, len(revealed.Keypair))
	for i, b := range revealed.Keypair {
		kp[i] = int(b)
	}
	writeJSON(w, http.StatusOK, KeypairResponse{Success: true, Keypair: kp, AssetPubkey: revealed.AssetPubkey})
}

func (h *Handler) MarkMinted(w http.ResponseWriter, r *http.Request) {
	var req MarkMintedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.mints.MarkMinted(r.Context(), chi.URLParam(r, "mintId"), strings.TrimSpace(req.TxSignature)); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ServeUpload serves stored files through the access gate.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := path.Base(chi.URLParam(r, "filename"))

	if err := h.gate.CheckFile(name); err != nil {
		h.handleError(w, err)
		return
	}

	p, err := h.uploads.Resolve(name)
	if err != nil {
		h.error(w, http.StatusNotFound, "File not found")
		return
	}
	f, err := os.Open(p)
	if err != nil {
		h.error(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.error(w, http.StatusNotFound, "File not found")
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, web.IndexPage)
}

func (h *Handler) MintPage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, web.MintPage)
}

func (h *Handler) serveFile(w http.ResponseWriter, filename string) {
	content, err := web.Page(filename)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		h.error(w, http.StatusNotFound, "Mint not found")
	case errors.Is(err, registry.ErrAlreadyMinted):
		h.error(w, http.StatusConflict, "Already minted")
	case errors.Is(err, registry.ErrMissingSignature):
		h.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrNotOpen):
		h.error(w, http.StatusForbidden, "Mint not open yet")
	case errors.Is(err, access.ErrFileNotFound):
		h.error(w, http.StatusNotFound, "File not found")
	case errors.Is(err, access.ErrNotMinted):
		h.error(w, http.StatusForbidden, "File not accessible until NFT is minted")
	default:
		h.logger.Error("request failed", logging.Error(err))
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
