package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
	"github.com/spaghettifunk/anima/engine/transport"
)

func newReceiveCmd(opts *globalOptions) *cobra.Command {
	var target string
	var address string
	var outDir string
	var count int
	var compress bool

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Run a receiver that prints or stores incoming manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				targetType, err := metadata.ParseTargetType(target)
				if err != nil {
					return err
				}
				if address, err = transport.ForTarget(targetType); err != nil {
					return err
				}
			}

			r, err := transport.NewReceiver(address, transport.DefaultBacklog)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := opts.serveMetrics(ctx); err != nil {
				r.Close()
				return err
			}

			served := make(chan error, 1)
			go func() { served <- r.Serve(ctx) }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "listening on %s\n", r.Addr())

			for received := 0; count <= 0 || received < count; received++ {
				payload, err := r.Next(ctx)
				if err != nil {
					break
				}
				if err := report(out, payload, outDir, received, compress); err != nil {
					core.LogWarn("%s", err.Error())
				}
			}

			stop()
			return <-served
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", metadata.TargetTypeBlender.String(), "Blender or Unreal, picks the loopback port")
	cmd.Flags().StringVar(&address, "addr", "", "listen address, overrides --target")
	cmd.Flags().StringVar(&outDir, "out", "", "directory manifests are written to")
	cmd.Flags().BoolVar(&compress, "compress", false, "store manifests zstd compressed")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many manifests, 0 runs until interrupted")
	return cmd
}

func report(out io.Writer, payload []byte, outDir string, index int, compress bool) error {
	var manifest struct {
		AssetsFolder string `json:"assetsFolder"`
		Data         []struct {
			Name          string              `json:"name"`
			Path          string              `json:"path"`
			PrimitiveType metadata.ExportType `json:"primitiveType"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return fmt.Errorf("manifest %d is not valid JSON: %w", index, err)
	}

	fmt.Fprintf(out, "manifest %d: %d record(s) under %s\n", index, len(manifest.Data), manifest.AssetsFolder)
	for _, record := range manifest.Data {
		fmt.Fprintf(out, "  %-10s %s -> %s\n", record.PrimitiveType, record.Name, record.Path)
	}

	if outDir == "" {
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	name := filepath.Join(outDir, fmt.Sprintf("manifest-%03d.json", index))
	if !compress {
		return os.WriteFile(name, payload, 0o644)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	return os.WriteFile(name+".zst", enc.EncodeAll(payload, nil), 0o644)
}
