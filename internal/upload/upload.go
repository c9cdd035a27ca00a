// Package upload stores single-file multipart uploads under generated names.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/uploads/"

// multipart framing allowance on top of the file size limit
const envelopeSlack = 1 << 20

var (
	ErrNoFile   = errors.New("no file provided")
	ErrTooLarge = errors.New("file too large")
)

type Stored struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

type Receiver struct {
	dir     string
	maxSize int64
}

func NewReceiver(dir string, maxSize int64) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &Receiver{dir: dir, maxSize: maxSize}, nil
}

func (rc *Receiver) Dir() string {
	return rc.dir
}

// Receive streams the first part named field to disk. Other parts are
// skipped.
func (rc *Receiver) Receive(w http.ResponseWriter, r *http.Request, field string) (Stored, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rc.maxSize+envelopeSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return Stored{}, fmt.Errorf("%w: %v", ErrNoFile, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return Stored{}, ErrNoFile
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return Stored{}, rc.tooLarge()
			}
			return Stored{}, fmt.Errorf("reading upload: %w", err)
		}
		if part.FormName() != field || part.FileName() == "" {
			part.Close()
			continue
		}

		stored, err := rc.save(part, part.FileName())
		part.Close()
		return stored, err
	}
}

func (rc *Receiver) save(src io.Reader, original string) (Stored, error) {
	name := uuid.NewString() + "-" + sanitize(original)
	dst := filepath.Join(rc.dir, name)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("creating upload: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(src, rc.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > rc.maxSize {
		err = rc.tooLarge()
	}
	if err != nil {
		_ = os.Remove(dst)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Stored{}, rc.tooLarge()
		}
		if errors.Is(err, ErrTooLarge) {
			return Stored{}, err
		}
		return Stored{}, fmt.Errorf("writing upload: %w", err)
	}
	if n == 0 {
		_ = os.Remove(dst)
		return Stored{}, fmt.Errorf("%w: empty file", ErrNoFile)
	}

	return Stored{Filename: name, Path: URLPrefix + name, Size: n}, nil
}

func (rc *Receiver) tooLarge() error {
	return fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(rc.maxSize)))
}

// Resolve maps a stored reference ("/uploads/x.jpg" or "x.jpg") to its path
// on disk. Only the final element is used, so references cannot escape dir.
func (rc *Receiver) Resolve(ref string) (string, error) {
	name := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(rc.dir, name), nil
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
