package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/membufio/membuf/internal/api"
	"github.com/membufio/membuf/internal/bytesize"
	"github.com/membufio/membuf/internal/logger"
	"github.com/membufio/membuf/pkg/membuf"
	"github.com/membufio/membuf/pkg/metrics"
	"github.com/membufio/membuf/pkg/source"
)

var (
	streamReadSize string
	streamSeekTo   uint64
	streamDiscard  bool
	streamS3Region string
	streamS3Creds  string
)

var streamCmd = &cobra.Command{
	Use:   "stream <path | s3://bucket/key>",
	Short: "Pump a source through the cache",
	Long: `Open a local file or S3 object, wrap it in the prebuffering cache, and
copy it to stdout (or nowhere with --discard), reporting throughput and
how far ahead the producer ran.

The cache must be enabled in the configuration (membuf.enable: true) or
via MEMBUF_MEMBUF_ENABLE=true.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVar(&streamReadSize, "read-size", "", "bytes per read (e.g. 64Ki); overrides stream.read_size")
	streamCmd.Flags().Uint64Var(&streamSeekTo, "seek", 0, "start position in bytes")
	streamCmd.Flags().BoolVar(&streamDiscard, "discard", false, "drop output instead of writing to stdout")
	streamCmd.Flags().StringVar(&streamS3Region, "s3-region", "", "AWS region for s3:// sources")
	streamCmd.Flags().StringVar(&streamS3Creds, "s3-credentials", "", "static credentials as ACCESS_KEY:SECRET for s3:// sources")
}

// openSource opens args[0] as a file or S3 source.
func openSource(ctx context.Context, target string) (source.Source, error) {
	if !strings.HasPrefix(target, "s3://") {
		return source.OpenFile(target)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", target, err)
	}
	cfg := source.S3Config{
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
		Region: streamS3Region,
	}
	if streamS3Creds != "" {
		id, secret, ok := strings.Cut(streamS3Creds, ":")
		if !ok {
			return nil, fmt.Errorf("--s3-credentials must be ACCESS_KEY:SECRET")
		}
		cfg.AccessKeyID, cfg.SecretAccessKey = id, secret
	}
	return source.OpenS3(ctx, cfg)
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	readSize := cfg.Stream.ReadSize
	if streamReadSize != "" {
		readSize, err = bytesize.Parse(streamReadSize)
		if err != nil {
			return fmt.Errorf("--read-size: %w", err)
		}
	}

	ctx := cmd.Context()
	src, err := openSource(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var collector metrics.Collector
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector = metrics.NewPrometheus(reg)
		gatherer = reg
	}

	st, err := membuf.Open(src, membuf.Options{
		Enabled:   cfg.Membuf.Enable,
		Collector: collector,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if cfg.API.Enabled {
		srv := api.New(cfg.API.Listen, func() api.Status {
			return api.Status{
				Size:              st.Size(),
				Position:          st.Tell(),
				CachedSize:        st.CachedSize(),
				PrebufferFinished: st.PrebufferFinished(),
			}
		}, gatherer)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if streamSeekTo > 0 {
		if err := st.Seek(streamSeekTo); err != nil {
			return fmt.Errorf("seek to %d: %w", streamSeekTo, err)
		}
	}

	var out io.Writer = os.Stdout
	if streamDiscard {
		out = io.Discard
	}

	start := time.Now()
	buf := make([]byte, readSize.Int())
	var total uint64
	for {
		n, err := st.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write output: %w", werr)
			}
			total += uint64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
	elapsed := time.Since(start)

	rate := float64(total) / elapsed.Seconds()
	logger.Info("membuf: stream done",
		"bytes", total,
		"elapsed", elapsed.Round(time.Millisecond),
		"rate", fmt.Sprintf("%s/s", bytesize.ByteSize(rate)),
		"cached", st.CachedSize(),
	)
	return nil
}
