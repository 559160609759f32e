package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"framebridge/internal/events"
	"framebridge/internal/services/frametool"
)

// sizeFlags backs --min-size and --max-size. Bounds stay nil unless set.
type sizeFlags struct {
	min, max float64
}

func (s sizeFlags) apply(cmd *cobra.Command) (minSize, maxSize *float64) {
	if cmd.Flags().Changed("min-size") {
		v := s.min
		minSize = &v
	}
	if cmd.Flags().Changed("max-size") {
		v := s.max
		maxSize = &v
	}
	return minSize, maxSize
}

func intFlag(cmd *cobra.Command, name string, value int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var opts frametool.BatchCompressOptions
	var quality int
	var sizes sizeFlags

	cmd := &cobra.Command{
		Use:   "compress <input-dir> <output-dir>",
		Short: "Batch compress images with frame-extractor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InputDir, opts.OutputDir = args[0], args[1]
			opts.Quality = intFlag(cmd, "quality", quality)
			opts.MinSize, opts.MaxSize = sizes.apply(cmd)
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				stop := ctx.follow(runCtx, b, cmd.OutOrStdout(), events.CompressProgress)
				res, err := b.BatchCompress(runCtx, opts)
				stop()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				printBatchSummary(cmd.OutOrStdout(), res.Message, "Files", res.TotalFiles, res.SuccessCount, res.FailedCount)
				return batchError(res.Success, res.Message, res.Error)
			})
		},
	}
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "Output quality (1-100)")
	cmd.Flags().Float64Var(&sizes.min, "min-size", 0, "Skip files smaller than this many MB")
	cmd.Flags().Float64Var(&sizes.max, "max-size", 0, "Skip files larger than this many MB")
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts frametool.ExtractFirstFrameOptions
	var webpQuality int
	var sizes sizeFlags

	cmd := &cobra.Command{
		Use:   "extract <input-dir> <output-dir>",
		Short: "Extract the first frame of every video in a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InputDir, opts.OutputDir = args[0], args[1]
			opts.WebPQuality = intFlag(cmd, "webp-quality", webpQuality)
			opts.MinSize, opts.MaxSize = sizes.apply(cmd)
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				stop := ctx.follow(runCtx, b, cmd.OutOrStdout(), events.ExtractProgress)
				res, err := b.ExtractFirstFrames(runCtx, opts)
				stop()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				printBatchSummary(cmd.OutOrStdout(), res.Message, "Videos", res.TotalVideos, res.SuccessCount, res.FailedCount)
				return batchError(res.Success, res.Message, res.Error)
			})
		},
	}
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "Compress extracted frames to WebP")
	cmd.Flags().IntVar(&webpQuality, "webp-quality", 0, "WebP quality when --compress is set (1-100)")
	cmd.Flags().Float64Var(&sizes.min, "min-size", 0, "Skip videos smaller than this many MB")
	cmd.Flags().Float64Var(&sizes.max, "max-size", 0, "Skip videos larger than this many MB")
	return cmd
}

func newToolCommand(ctx *commandContext) *cobra.Command {
	toolCmd := &cobra.Command{
		Use:   "tool",
		Short: "Run frame-extractor directly",
	}
	toolCmd.AddCommand(&cobra.Command{
		Use:                "run [args...]",
		Short:              "Run frame-extractor with raw arguments",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				stop := ctx.follow(runCtx, b, cmd.OutOrStdout(), events.ToolOutput)
				res, err := b.RunTool(runCtx, args)
				stop()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				if !res.Success {
					return fmt.Errorf("frame-extractor failed: %s", res.Error)
				}
				return nil
			})
		},
	})
	return toolCmd
}

// follow streams events unless JSON output was requested.
func (c *commandContext) follow(ctx context.Context, b backend, out io.Writer, kinds ...events.Kind) func() {
	if c.jsonOutput() {
		return func() {}
	}
	return followEvents(ctx, b, out, kinds...)
}

func printBatchSummary(out io.Writer, message, noun string, total, succeeded, failed *int) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, message)
	rows := [][]string{
		{noun, countText(total)},
		{"Succeeded", countText(succeeded)},
		{"Failed", countText(failed)},
	}
	fmt.Fprint(out, renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func batchError(success bool, message, detail string) error {
	if success {
		return nil
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		return fmt.Errorf("%s: %s", message, detail)
	}
	return fmt.Errorf("%s", message)
}
