package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/imaging"
	"github.com/roach88/integrator/internal/key"
)

// ImageOptions holds flags for the image commands.
type ImageOptions struct {
	*RootOptions
	Output string
	MaxAge time.Duration
}

// ImageView describes a stored or normalized image.
type ImageView struct {
	Key       string    `json:"key,omitempty" yaml:"key,omitempty"`
	Width     int       `json:"width" yaml:"width"`
	Height    int       `json:"height" yaml:"height"`
	Format    string    `json:"format" yaml:"format"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
	Stale     *bool     `json:"stale,omitempty" yaml:"stale,omitempty"`
	Output    string    `json:"output,omitempty" yaml:"output,omitempty"`
}

func (v ImageView) String() string {
	s := fmt.Sprintf("%dx%d %s, %d bytes", v.Width, v.Height, v.Format, v.Bytes)
	if v.Key != "" {
		s = v.Key + ": " + s
	}
	if !v.UpdatedAt.IsZero() {
		s += ", updated " + v.UpdatedAt.Format(time.RFC3339)
	}
	if v.Stale != nil && *v.Stale {
		s += " (stale)"
	}
	if v.Output != "" {
		s += " -> " + v.Output
	}
	return s
}

func describeImage(k string, data []byte) (ImageView, error) {
	info, err := imaging.Inspect(data)
	if err != nil {
		return ImageView{}, err
	}
	return ImageView{Key: k, Width: info.Width, Height: info.Height, Format: info.Format, Bytes: len(data)}, nil
}

// NewImageCommand creates the image command group.
func NewImageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "image",
		Short: "Normalize and cache facility photographs",
	}
	cmd.AddCommand(newImageNormalizeCommand(opts))
	cmd.AddCommand(newImagePutCommand(opts))
	cmd.AddCommand(newImageGetCommand(opts))
	return cmd
}

func newImageNormalizeCommand(opts *ImageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize IN OUT",
		Short: "Shrink an image to the configured bounds and re-encode it as JPEG",
		Long: `Normalize an image file without touching the database. The result fits
within image.max_width x image.max_height, keeps its aspect ratio, is never
enlarged, and is encoded as JPEG at image.quality.

Examples:
  integrator image normalize photo.png photo.jpg`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageNormalize(opts, cmd, args[0], args[1])
		},
	}
}

func runImageNormalize(opts *ImageOptions, cmd *cobra.Command, in, out string) error {
	raw, err := os.ReadFile(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read image", err)
	}
	normalized, err := imaging.Normalize(raw, opts.Config.ImageOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to normalize image", err)
	}
	if err := os.WriteFile(out, normalized, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write image", err)
	}

	view, err := describeImage("", normalized)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect image", err)
	}
	view.Output = out
	return opts.formatter(cmd).Success(view)
}

func newImagePutCommand(opts *ImageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put FACILITY:ITEM FILE",
		Short: "Normalize an image and cache it",
		Example: `  integrator image put 3:41 photo.png`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagePut(opts, cmd, args[0], args[1])
		},
	}
}

func runImagePut(opts *ImageOptions, cmd *cobra.Command, keyArg, file string) error {
	ctx := cmd.Context()

	k, err := key.ParseInt(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read image", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	img, err := e.images.Put(ctx, k, raw)
	if err != nil {
		return wrapImageError("failed to cache image", err)
	}
	view, err := describeImage(k.String(), img.Image)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect image", err)
	}
	view.UpdatedAt = img.UpdatedAt
	return opts.formatter(cmd).Success(view)
}

func newImageGetCommand(opts *ImageOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get FACILITY:ITEM",
		Short: "Show a cached image and optionally write it out",
		Example: `  integrator image get 3:41 --out photo.jpg
  integrator image get 3:41 --max-age 24h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageGet(opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the JPEG to this file")
	cmd.Flags().DurationVar(&opts.MaxAge, "max-age", 0, "report whether the image is older than this")
	return cmd
}

func runImageGet(opts *ImageOptions, cmd *cobra.Command, keyArg string) error {
	ctx := cmd.Context()

	k, err := key.ParseInt(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	img, err := e.images.Get(ctx, k)
	if err != nil {
		return wrapDomainError("failed to get image", err)
	}
	view, err := describeImage(k.String(), img.Image)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect image", err)
	}
	view.UpdatedAt = img.UpdatedAt

	if opts.MaxAge > 0 {
		stale, err := e.images.IsStale(ctx, k, opts.MaxAge)
		if err != nil {
			return wrapDomainError("failed to check image age", err)
		}
		view.Stale = &stale
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, img.Image, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write image", err)
		}
		view.Output = opts.Output
	}
	return opts.formatter(cmd).Success(view)
}

// wrapImageError treats undecodable uploads as caller mistakes.
func wrapImageError(message string, err error) *ExitError {
	var de *imaging.DecodeError
	if errors.As(err, &de) {
		return WrapExitError(ExitFailure, message, err)
	}
	return wrapDomainError(message, err)
}
