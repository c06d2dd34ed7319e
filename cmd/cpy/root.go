package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/FerroO2000/cpy"
	"github.com/FerroO2000/cpy/internal"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string

	blockSize  int
	blockCount int
	bufferSize int
	chunkSize  int
	flushSize  int

	watch    bool
	debounce time.Duration

	verbose      bool
	quiet        bool
	otelEndpoint string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithFlags(&rootFlags{})
}

func newRootCmdWithFlags(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cpy [flags] <source> <destination>",
		Short: "Copy a file through a segmented bounded buffer",
		Long: `Copy a file through a segmented bounded buffer.

A producer reads the source in chunks and pushes its bytes into the buffer,
while a consumer pulls them out and writes them to the destination in batches.
The destination is created or truncated. Use "-" for stdin or stdout.

The zero byte marks the end of the stream: a source containing it
is copied only up to its first occurrence.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, flags, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	f.IntVar(&flags.blockSize, "block-size", cpy.NewConfig().Buffer.BlockSize, "bytes per buffer block")
	f.IntVar(&flags.blockCount, "block-count", cpy.NewConfig().Buffer.BlockCount, "number of buffer blocks")
	f.IntVar(&flags.bufferSize, "buffer-size", 0, "buffer capacity in bytes (default block-size * block-count)")
	f.IntVar(&flags.chunkSize, "chunk-size", cpy.NewConfig().Producer.ChunkSize, "bytes read from the source at once")
	f.IntVar(&flags.flushSize, "flush-size", cpy.NewConfig().Consumer.BufferSize, "bytes written to the destination at once")
	f.BoolVarP(&flags.watch, "watch", "w", false, "copy again every time the source changes")
	f.DurationVar(&flags.debounce, "debounce", cpy.DefaultWatchConfigDebounce, "delay between a change of the source and the copy")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print debug logs")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "do not print the copy summary")
	f.StringVar(&flags.otelEndpoint, "otel-endpoint", "", "OTLP gRPC collector endpoint (e.g. localhost:4317)")

	return cmd
}

// loadConfig reads the configuration file, if any, and applies
// the flags explicitly set on the command line.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*cpy.Config, error) {
	cfg := cpy.NewConfig()

	if flags.configPath != "" {
		loaded, err := cpy.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()

	if f.Changed("block-size") {
		cfg.Buffer.BlockSize = flags.blockSize
	}
	if f.Changed("block-count") {
		cfg.Buffer.BlockCount = flags.blockCount
	}

	switch {
	case f.Changed("buffer-size"):
		cfg.Buffer.Capacity = flags.bufferSize
	case f.Changed("block-size") || f.Changed("block-count"):
		cfg.Buffer.Capacity = 0
	}

	if f.Changed("chunk-size") {
		cfg.Producer.ChunkSize = flags.chunkSize
	}
	if f.Changed("flush-size") {
		cfg.Consumer.BufferSize = flags.flushSize
	}
	if f.Changed("debounce") {
		cfg.Watch.Debounce = flags.debounce
	}

	return cfg, nil
}

func runRoot(cmd *cobra.Command, flags *rootFlags, src, dst string) error {
	ctx := cmd.Context()

	internal.SetLogOutput(cmd.ErrOrStderr())
	if flags.verbose {
		internal.SetLogLevel(slog.LevelDebug)
	} else {
		internal.SetLogLevel(slog.LevelWarn)
	}

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	if flags.otelEndpoint != "" {
		shutdown, err := initTelemetry(ctx, flags.otelEndpoint)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	// The destination may be stdout, so the summary goes to stderr
	out := cmd.ErrOrStderr()
	if flags.quiet {
		out = io.Discard
	}

	if flags.watch {
		return cpy.Watch(ctx, src, dst, cfg, func(report *cpy.Report, err error) {
			if err == nil {
				printReport(out, report)
			}
		})
	}

	report, err := cpy.Copy(ctx, src, dst, cfg)
	if err != nil {
		return err
	}

	printReport(out, report)

	return nil
}

func printReport(w io.Writer, report *cpy.Report) {
	throughput := "-"
	if secs := report.Duration.Seconds(); secs > 0 {
		throughput = humanize.Bytes(uint64(float64(report.WrittenBytes)/secs)) + "/s"
	}

	fmt.Fprintf(w, "%s -> %s: %s copied in %s (%s)\n",
		report.Source, report.Destination,
		humanize.Bytes(uint64(report.WrittenBytes)),
		report.Duration.Round(time.Microsecond), throughput)

	if report.WrittenBytes < report.ReadBytes {
		fmt.Fprintf(w, "warning: source truncated at the first zero byte (%s read)\n",
			humanize.Bytes(uint64(report.ReadBytes)))
	}
}
