package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3route/internal/config"
	"github.com/3leaps/s3route/internal/observability"
	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/endpoint"
	"github.com/3leaps/s3route/pkg/output"
	"github.com/3leaps/s3route/pkg/provider"
	"github.com/3leaps/s3route/pkg/provider/s3"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint <bucket|uri>...",
	Short: "Resolve how to address S3 buckets (JSONL)",
	Long: `Resolve the calling format, region and endpoint host for buckets.

Buckets are given as bare names or s3:// URIs. Names that cannot be used
as a host name are pinned to the legacy region. Dotted names are looked up
with GetBucketLocation, which needs credentials; other names are addressed
virtual-hosted without any request.

Output is JSONL on stdout, one s3route.endpoint.v1 record per bucket.
Errors are emitted on stdout as s3route.error.v1 records.

Examples:
  s3route endpoint my.dotted.bucket
  s3route endpoint s3://InvalidBucket/key
  s3route endpoint --stdin < buckets.txt
  s3route endpoint --no-lookup my.dotted.bucket`,
	Args: validateEndpointArgs,
	RunE: runEndpoint,
}

var (
	endpointStdin       bool
	endpointNoLookup    bool
	endpointConcurrency int
	endpointLookupURL   string
)

func init() {
	rootCmd.AddCommand(endpointCmd)
	endpointCmd.Flags().BoolVar(&endpointStdin, "stdin", false, "Read buckets or URIs from stdin (one per line)")
	endpointCmd.Flags().BoolVar(&endpointNoLookup, "no-lookup", false, "Do not look up regions; report dotted buckets as needing resolution")
	endpointCmd.Flags().IntVar(&endpointConcurrency, "concurrency", 0, "Max concurrent resolutions (default: workers from config)")
	endpointCmd.Flags().StringVar(&endpointLookupURL, "endpoint", "", "Custom S3 endpoint for location lookups")
}

func validateEndpointArgs(cmd *cobra.Command, args []string) error {
	stdin, _ := cmd.Flags().GetBool("stdin")
	if stdin {
		if len(args) != 0 {
			return fmt.Errorf("when using --stdin, do not provide bucket arguments")
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("requires at least 1 argument: <bucket|uri> (or use --stdin)")
	}
	return nil
}

func runEndpoint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(exitInvalidConfig, "Invalid configuration", err)
	}

	concurrency := endpointConcurrency
	if concurrency == 0 {
		concurrency = cfg.Workers
	}
	if concurrency < 1 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --concurrency value", fmt.Errorf("concurrency must be >= 1"))
	}

	inputs := args
	if endpointStdin {
		lines, err := readURILines(cmd.InOrStdin())
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Failed to read stdin", err)
		}
		inputs = lines
	}
	if len(inputs) == 0 {
		return nil
	}

	lookupURL := cfg.Lookup.Endpoint
	if endpointLookupURL != "" {
		lookupURL = endpointLookupURL
	}

	jobID := uuid.New().String()
	w := output.NewJSONLWriter(cmd.OutOrStdout(), jobID, string(provider.ProviderS3))
	defer func() { _ = w.Close() }()

	run := &endpointRun{
		resolver: endpoint.NewResolver(
			endpoint.WithRegionHosts(cfg.Regions),
			endpoint.WithLogger(observability.CLILogger),
		),
		writer:   w,
		noLookup: endpointNoLookup,
	}
	run.lookup = sync.OnceValues(func() (endpoint.RegionLookup, error) {
		return newRegionLookup(ctx, cfg, lookupURL)
	})

	start := time.Now()
	tasks := make(chan string, concurrency*2)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range tasks {
				if ctx.Err() != nil {
					return
				}
				run.process(ctx, in)
			}
		}()
	}

	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		tasks <- in
	}
	close(tasks)
	wg.Wait()

	if ctx.Err() != nil {
		return exitError(foundry.ExitSignalInt, "endpoint resolution cancelled", ctx.Err())
	}

	if len(inputs) > 1 {
		elapsed := time.Since(start)
		if err := w.WriteSummary(ctx, &output.SummaryRecord{
			Buckets:       int64(len(inputs)),
			VirtualHosted: run.virtualHosted.Load(),
			Resolved:      run.resolved.Load(),
			Legacy:        run.legacy.Load(),
			Errors:        run.invalid.Load() + run.serviceErrs.Load(),
			Duration:      elapsed,
			DurationHuman: elapsed.Round(time.Millisecond).String(),
		}); err != nil {
			observability.CLILogger.Warn("Failed to write summary record", zap.Error(err))
		}
	}

	if run.invalid.Load() > 0 {
		return exitError(foundry.ExitInvalidArgument, "endpoint resolution completed with invalid inputs", fmt.Errorf("invalid_inputs=%d", run.invalid.Load()))
	}
	if run.serviceErrs.Load() > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "endpoint resolution completed with errors", fmt.Errorf("errors=%d", run.serviceErrs.Load()))
	}
	return nil
}

// endpointRun holds the shared state of one endpoint invocation.
type endpointRun struct {
	resolver *endpoint.Resolver
	writer   output.Writer
	lookup   func() (endpoint.RegionLookup, error)
	noLookup bool

	virtualHosted atomic.Int64
	resolved      atomic.Int64
	legacy        atomic.Int64
	invalid       atomic.Int64
	serviceErrs   atomic.Int64
}

func (r *endpointRun) process(ctx context.Context, in string) {
	uri, err := parseBucketArg(in)
	if err != nil {
		r.fail(ctx, "", "invalid input", err)
		return
	}

	info := r.resolver.Resolve(uri.Bucket)
	if info.NeedsResolution() && !r.noLookup {
		lookup, err := r.lookup()
		if err != nil {
			r.fail(ctx, uri.Bucket, "cannot look up bucket region", err)
			return
		}
		info, err = r.resolver.Complete(ctx, info, lookup)
		if err != nil {
			r.fail(ctx, uri.Bucket, "bucket region lookup failed", err)
			return
		}
	}

	switch info.State {
	case endpoint.StateVirtualHosted:
		r.virtualHosted.Add(1)
	case endpoint.StateLegacy:
		r.legacy.Add(1)
	case endpoint.StateResolved:
		r.resolved.Add(1)
	}

	rec := endpointRecord(info)
	if in != uri.Bucket {
		rec.URI = in
	}
	if err := r.writer.WriteEndpoint(ctx, rec); err != nil {
		observability.CLILogger.Error("Failed to write record", zap.Error(err))
		r.serviceErrs.Add(1)
	}
}

func (r *endpointRun) fail(ctx context.Context, bucket, message string, err error) {
	f := classify(err)
	if f.ExitCode == foundry.ExitInvalidArgument {
		r.invalid.Add(1)
	} else {
		r.serviceErrs.Add(1)
	}

	observability.CLILogger.Debug(message, zap.String("bucket", bucket), zap.Error(err))
	if werr := r.writer.WriteError(context.WithoutCancel(ctx), errorRecord(bucket, message, err)); werr != nil {
		observability.CLILogger.Debug("Failed to emit endpoint error record", zap.Error(werr))
	}
}

// newRegionLookup resolves credentials and builds the S3 location lookup.
// Incomplete credentials are reported before any request is made.
func newRegionLookup(ctx context.Context, cfg *config.Config, endpointURL string) (endpoint.RegionLookup, error) {
	cred, err := newCredentialResolver(cfg).Resolve(ctx, cfg.Credentials.AccessKeyID, cfg.Credentials.SecurityToken)
	if err != nil {
		return nil, err
	}
	if err := credentials.RequireComplete(cred); err != nil {
		logIncomplete(err)
		return nil, err
	}

	return newRegionLooker(ctx, cfg, endpointURL, cred)
}

// newRegionLooker builds the S3 location lookup for a complete credential.
func newRegionLooker(ctx context.Context, cfg *config.Config, endpointURL string, cred credentials.Credential) (endpoint.RegionLookup, error) {
	looker, err := s3.NewRegionLookerForCredential(ctx, cred, endpointURL,
		s3.WithLookupTimeout(cfg.Lookup.Timeout),
		s3.WithRateLimit(cfg.Lookup.RateLimit),
	)
	if err != nil {
		return nil, err
	}
	return looker.Lookup, nil
}

// endpointRecord converts info to its JSONL payload.
func endpointRecord(info endpoint.CallingInfo) *output.EndpointRecord {
	rec := &output.EndpointRecord{
		Bucket:       info.Bucket,
		Format:       info.Format.String(),
		State:        info.State.String(),
		Region:       info.Region,
		EndpointHost: info.EndpointHost,
		Host:         info.Host(),
	}
	if info.Region != "" {
		rec.SigningRegion = endpoint.SigningRegion(info.Region)
	}
	return rec
}
