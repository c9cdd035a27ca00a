// Package media turns a still image and an audio track into an MP4 using
// ffmpeg, and inspects the result with ffprobe.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"music.mint/internal/logging"
)

const (
	defaultBinary       = "ffmpeg"
	defaultAudioBitrate = "192k"
	stderrChunk         = 4096
)

// ComposeRequest describes one image + audio composition. A zero Duration
// lets the shorter input decide the length, which is the audio since the
// image loops forever.
type ComposeRequest struct {
	AudioPath  string
	ImagePath  string
	OutputPath string
	Duration   time.Duration
}

type Options struct {
	Binary       string
	AudioBitrate string
	// Timeout bounds a single ffmpeg run; zero means no limit.
	Timeout time.Duration
}

// Composer runs one ffmpeg process per call. Calls writing the same output
// path are serialized; everything else runs concurrently.
type Composer struct {
	binary       string
	audioBitrate string
	timeout      time.Duration
	logger       *slog.Logger
	dests        *keyedMutex
}

func NewComposer(opts Options, logger *slog.Logger) *Composer {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	bitrate := strings.TrimSpace(opts.AudioBitrate)
	if bitrate == "" {
		bitrate = defaultAudioBitrate
	}
	return &Composer{
		binary:       binary,
		audioBitrate: bitrate,
		timeout:      opts.Timeout,
		logger:       logging.NewComponentLogger(logger, "composer"),
		dests:        newKeyedMutex(),
	}
}

// Compose writes req.OutputPath, replacing any existing file, and returns it.
// On failure the output file may be partial or missing.
func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (string, error) {
	if err := requireFile("Audio", req.AudioPath); err != nil {
		return "", err
	}
	if err := requireFile("Image", req.ImagePath); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", errors.New("output path is required")
	}
	if req.Duration < 0 {
		return "", fmt.Errorf("invalid duration %s", req.Duration)
	}

	unlock := c.dests.Lock(destKey(req.OutputPath))
	defer unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.buildArgs(req)
	c.logger.Debug("executing ffmpeg",
		logging.String("output", req.OutputPath),
		logging.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	if err := c.run(ctx, args); err != nil {
		c.logger.Warn("ffmpeg composition failed",
			logging.String("output", req.OutputPath),
			logging.Error(err),
		)
		return "", err
	}

	c.logger.Info("video composed",
		logging.String("output", req.OutputPath),
		logging.Duration("elapsed", time.Since(start)),
	)
	return req.OutputPath, nil
}

func (c *Composer) buildArgs(req ComposeRequest) []string {
	args := []string{
		"-loop", "1",
		"-i", req.ImagePath,
		"-i", req.AudioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", c.audioBitrate,
		"-pix_fmt", "yuv420p",
		"-shortest",
	}
	if req.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(req.Duration.Seconds(), 'f', -1, 64))
	}
	return append(args, "-y", req.OutputPath)
}

func (c *Composer) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &LaunchError{Binary: c.binary, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &LaunchError{Binary: c.binary, Err: err}
	}

	diag := collect(stderr)
	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ffmpeg interrupted: %w: %s", ctxErr, diag)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: diag}
	}
	return fmt.Errorf("ffmpeg wait: %w", waitErr)
}

// collect reads r chunk by chunk until EOF and concatenates the chunks.
func collect(r io.Reader) string {
	var sb strings.Builder
	buf := make([]byte, stderrChunk)
	for {
		n, err := r.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			return sb.String()
		}
	}
}

func requireFile(role, path string) error {
	if strings.TrimSpace(path) == "" {
		return &SourceNotFoundError{Role: role, Path: path}
	}
	if _, err := os.Stat(path); err != nil {
		return &SourceNotFoundError{Role: role, Path: path}
	}
	return nil
}

func destKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
