package cmd

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"

	"github.com/andresmejia3/facegate/internal/camera"
	"github.com/andresmejia3/facegate/internal/capture"
	"github.com/andresmejia3/facegate/internal/utils"
	"github.com/spf13/cobra"
)

var (
	snapshotOpts    Options
	snapshotOutput  string
	snapshotDataURI bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture one frame exactly as login would send it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runSnapshot(cmd.Context(), snapshotOpts)
	},
}

func init() {
	addCameraFlags(snapshotCmd, &snapshotOpts)
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "snapshot.png", "Path to write the PNG to")
	snapshotCmd.Flags().BoolVar(&snapshotDataURI, "data-uri", false, "Print the data URI to stdout instead of writing a file")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(ctx context.Context, opts Options) error {
	if err := validateCameraFlags(&opts); err != nil {
		utils.ShowError("Invalid arguments", err, nil)
		return err
	}

	cfg := cameraConfig(opts)
	fmt.Fprintf(os.Stderr, "🎥 Opening camera %s (%s)...\n", cfg.Device, cfg.Backend)
	src, err := camera.Open(ctx, cfg)
	if err != nil {
		var startErr *camera.StartError
		var proc *utils.SafeCommand
		if errors.As(err, &startErr) {
			proc = startErr.Cmd
		}
		utils.ShowError("Camera unavailable", err, proc)
		return err
	}
	defer src.Close()

	uri, err := capture.Capture(src)
	if err != nil {
		utils.ShowError("Capture failed", err, nil)
		return err
	}

	if snapshotDataURI {
		fmt.Println(uri)
		return nil
	}

	img, err := capture.DecodeDataURI(uri)
	if err != nil {
		return err
	}
	f, err := os.Create(snapshotOutput)
	if err != nil {
		utils.ShowError("Failed to create output file", err, nil)
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to write %s: %w", snapshotOutput, err)
	}

	b := img.Bounds()
	fmt.Fprintf(os.Stderr, "✅ Saved %dx%d frame to %s\n", b.Dx(), b.Dy(), snapshotOutput)
	return nil
}
