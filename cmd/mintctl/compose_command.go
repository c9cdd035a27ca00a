package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"music.mint/internal/logging"
	"music.mint/internal/media"
)

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var audio, image, output string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Combine a still image and an audio track into an MP4",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: "console", Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			composer := media.NewComposer(media.Options{
				Binary:       cfg.Media.FFmpeg,
				AudioBitrate: cfg.Media.AudioBitrate,
				Timeout:      cfg.Media.Timeout,
			}, logger)

			start := time.Now()
			out, err := composer.Compose(cmd.Context(), media.ComposeRequest{
				AudioPath:  audio,
				ImagePath:  image,
				OutputPath: output,
				Duration:   duration,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Wrote %s in %s\n", out, time.Since(start).Round(time.Millisecond))
			if info, err := os.Stat(out); err == nil {
				fmt.Fprintf(w, "Size: %s\n", humanize.IBytes(uint64(info.Size())))
			}

			probe, err := media.Probe(cmd.Context(), cfg.Media.FFprobe, out)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "ffprobe unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintf(w, "Duration: %.2fs\n", probe.DurationSeconds())
			if v, ok := probe.Stream("video"); ok {
				fmt.Fprintf(w, "Video: %s %s\n", v.CodecName, v.PixFmt)
			}
			if a, ok := probe.Stream("audio"); ok {
				fmt.Fprintf(w, "Audio: %s\n", a.CodecName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audio, "audio", "", "Audio file")
	cmd.Flags().StringVar(&image, "image", "", "Still image")
	cmd.Flags().StringVarP(&output, "output", "o", "output.mp4", "Destination MP4")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Truncate the video to this length (0 keeps the full track)")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
