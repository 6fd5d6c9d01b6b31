package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"bckey/internal/config"
	apperrors "bckey/internal/errors"
	"bckey/internal/infrastructure"
	"bckey/internal/license"
	"bckey/internal/security"
)

const shutdownTimeout = 5 * time.Second

var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "decode":
		err = withEnv(stderr, func(ctx context.Context, rt *cliEnv) error {
			return runDecode(ctx, rt, args[1:], stdin, stdout)
		})
	case "machine-id":
		err = withEnv(stderr, func(ctx context.Context, rt *cliEnv) error {
			return runMachineID(ctx, rt, args[1:], stdout)
		})
	case "health":
		err = withEnv(stderr, func(ctx context.Context, rt *cliEnv) error {
			return runHealth(ctx, rt, args[1:], stdout)
		})
	case "version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "%s: unknown command %q\n\n", config.AppName, args[0])
		printUsage(stderr)
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return 1
	case errors.Is(err, errKeysRejected):
		return apperrors.ExitCode(err)
	case errors.Is(err, errUnhealthy):
		return 1
	default:
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return apperrors.ExitCode(err)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s decodes license keys and prints the machine fingerprint.

Usage:
  %[1]s decode [--json] [--stdin] [--workers N] [KEY...]
  %[1]s machine-id
  %[1]s health
  %[1]s version

With no KEY arguments decode reads one key per line from standard input,
or prompts for a single key when standard input is a terminal.

Configuration is read from $BCKEY_CONFIG, bckey.yaml or configs/bckey.yaml,
and BCKEY_* environment variables.
`, config.AppName)
}

// cliEnv is the per-invocation logging and telemetry state.
type cliEnv struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers *infrastructure.OTelProviders
	deriver   *security.FingerprintDeriver
	health    *license.HealthCheck
	stderr    io.Writer
}

// withEnv loads configuration, sets up logging and telemetry, runs fn
// and tears everything down again.
func withEnv(stderr io.Writer, fn func(ctx context.Context, rt *cliEnv) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logFile, err := infrastructure.BuildLogger(cfg.Logging, stderr)
	if err != nil {
		return apperrors.NewConfigError("failed to set up logging", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	otelCfg := infrastructure.OTelConfigFromTelemetry(cfg.Telemetry)
	otelCfg.TraceWriter = stderr
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return apperrors.NewConfigError("failed to set up telemetry", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	deriver, err := newDeriver(cfg, logger, providers)
	if err != nil {
		return err
	}
	health := license.NewHealthCheck(license.DefaultHealthCheckConfig())
	health.AddCheck("fingerprint", func(ctx context.Context) error {
		_, err := deriver.Fingerprint(ctx)
		return err
	})

	if cfg.Telemetry.MetricsAddr != "" {
		router := infrastructure.NewMetricsRouter(providers.PrometheusHTTP, logger)
		router.Get(config.ReadyEndpoint, health.HTTPHandler())

		server, err := infrastructure.StartMetricsServer(cfg.Telemetry.MetricsAddr, router, logger)
		if err != nil {
			return apperrors.NewConfigError("failed to start metrics server", err)
		}
		defer func() {
			if err := server.Shutdown(context.Background()); err != nil {
				logger.Warn("Metrics server shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	return fn(ctx, &cliEnv{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		deriver:   deriver,
		health:    health,
		stderr:    stderr,
	})
}

// errKeysRejected marks a decode run in which some key failed. Each failure
// has already been reported next to its key.
var errKeysRejected = errors.New("one or more license keys were rejected")

// decodeOutput is the JSON form of one decode result.
type decodeOutput struct {
	Key    string          `json:"key"`
	Valid  bool            `json:"valid"`
	Record *license.Record `json:"record,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func runDecode(ctx context.Context, rt *cliEnv, args []string, stdin io.Reader, stdout io.Writer) error {
	var asJSON, fromStdin bool
	var workers int

	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flagSet.SetOutput(rt.stderr)
	flagSet.BoolVar(&asJSON, "json", false, "print one JSON object per key")
	flagSet.BoolVar(&fromStdin, "stdin", false, "read keys from standard input, one per line")
	flagSet.IntVar(&workers, "workers", rt.cfg.License.Workers, "keys decoded concurrently")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if workers < 1 {
		return fmt.Errorf("%w: --workers must be at least 1", errUsage)
	}

	keys := flagSet.Args()
	masked := false
	if fromStdin && len(keys) > 0 {
		return fmt.Errorf("%w: --stdin cannot be combined with key arguments", errUsage)
	}
	if len(keys) == 0 {
		var err error
		if f, ok := stdin.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
			keys, err = promptKey(f, rt.stderr)
			masked = true
		} else {
			keys, err = readKeys(stdin)
		}
		if err != nil {
			return err
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no license keys given", errUsage)
	}

	licenseMetrics, err := license.InitializeMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}
	validator := license.NewValidator(
		license.WithLogger(rt.logger),
		license.WithMetrics(licenseMetrics),
		license.WithTracer(rt.providers.Tracer),
		license.WithRateLimit(rt.cfg.License.RateLimitRPS, rt.cfg.License.RateLimitBurst),
	)

	results := validator.ValidateAll(ctx, keys, workers)

	var firstErr error
	enc := json.NewEncoder(stdout)
	for _, res := range results {
		display := res.Key
		if masked {
			display = license.MaskLicenseKey(res.Key)
		}
		if res.Err != nil && firstErr == nil {
			firstErr = res.Err
		}

		if asJSON {
			out := decodeOutput{Key: display, Valid: res.Err == nil, Record: res.Record}
			if res.Err != nil {
				out.Reason = apperrors.Reason(res.Err)
				out.Error = res.Err.Error()
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			continue
		}

		if res.Err != nil {
			fmt.Fprintf(stdout, "%s: error: %v\n", display, res.Err)
		} else {
			fmt.Fprintf(stdout, "%s: %s\n", display, res.Record)
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%w: %w", errKeysRejected, firstErr)
	}
	return nil
}

// promptKey reads one key from the terminal without echo.
func promptKey(f *os.File, prompt io.Writer) ([]string, error) {
	fmt.Fprint(prompt, "License key: ")
	raw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read license key: %w", err)
	}

	key := strings.TrimSpace(string(raw))
	if key == "" {
		return nil, nil
	}
	return []string{key}, nil
}

// readKeys reads one key per line, skipping blank lines and # comments.
func readKeys(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read license keys: %w", err)
	}
	return keys, nil
}

func runMachineID(ctx context.Context, rt *cliEnv, args []string, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("machine-id", pflag.ContinueOnError)
	flagSet.SetOutput(rt.stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, flagSet.Arg(0))
	}

	fingerprint, err := rt.deriver.Fingerprint(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, fingerprint)
	return nil
}

func newDeriver(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*security.FingerprintDeriver, error) {
	metrics, err := security.InitializeMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}
	return security.NewFingerprintDeriver(
		security.WithLogger(logger),
		security.WithMetrics(metrics),
		security.WithTracer(providers.Tracer),
		security.WithPreferredPrefixes(cfg.Machine.PreferredPrefixes),
	), nil
}

// errUnhealthy is returned by the health command when a check fails.
var errUnhealthy = errors.New("health check failed")

func runHealth(ctx context.Context, rt *cliEnv, args []string, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("health", pflag.ContinueOnError)
	flagSet.SetOutput(rt.stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	result := rt.health.PerformHealthCheck(ctx)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if result.OverallStatus == license.HealthStatusUnhealthy {
		return errUnhealthy
	}
	return nil
}
