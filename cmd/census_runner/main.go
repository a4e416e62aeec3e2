// Package main implements the census_runner binary that triggers Census syncs
// and verifies the outcome of their runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/census_runner/internal/census"
	"github.com/cybertec-postgresql/census_runner/internal/db"
	"github.com/cybertec-postgresql/census_runner/internal/log"
	"github.com/cybertec-postgresql/census_runner/internal/store"
	"github.com/cybertec-postgresql/census_runner/internal/sync"
)

// APIOptions locate the sync and authenticate against the Census API
type APIOptions struct {
	AccessToken string `long:"access-token" env:"CENSUS_ACCESS_TOKEN" description:"Census API access token, including the secret-token: prefix"`
	SyncID      string `long:"sync-id" env:"CENSUS_SYNC_ID" description:"ID of the sync"`
	URL         string `long:"url" env:"CENSUS_TRIGGER_URL" description:"Sync trigger URL <api>/syncs/<id>/trigger, may embed bearer:<token>@"`
	APIURL      string `long:"api-url" env:"CENSUS_API_URL" description:"Census API root" default:"https://app.getcensus.com/api/v1"`
}

// ThresholdOptions are the record counts a completed run may exceed before it fails
type ThresholdOptions struct {
	FailureThreshold int64 `long:"failure-threshold" env:"CENSUS_FAILURE_THRESHOLD" description:"Highest number of failed records that still counts as success" default:"0"`
	InvalidThreshold int64 `long:"invalid-threshold" env:"CENSUS_INVALID_THRESHOLD" description:"Highest number of invalid records that still counts as success" default:"0"`
}

// PollOptions control waiting for a run to complete
type PollOptions struct {
	InitialDelay string `long:"initial-delay" env:"CENSUS_INITIAL_DELAY" description:"Wait before the first status check" default:"5s"`
	PollInterval string `long:"poll-interval" env:"CENSUS_POLL_INTERVAL" description:"Wait between status checks" default:"30s"`
	MaxPolls     uint64 `long:"max-polls" env:"CENSUS_MAX_POLLS" description:"Maximum number of status checks, 0 for unlimited" default:"0"`
	PollTimeout  string `long:"poll-timeout" env:"CENSUS_POLL_TIMEOUT" description:"Give up waiting after this long, 0s for never" default:"0s"`
}

// TriggerCommand starts a sync run
type TriggerCommand struct {
	APIOptions
	ThresholdOptions
	PollOptions
	CheckStatus string `long:"check-status" env:"CENSUS_CHECK_STATUS" description:"Wait for the run to complete and verify it: TRUE|FALSE" default:"TRUE"`
}

// VerifyCommand checks a previously triggered sync run
type VerifyCommand struct {
	APIOptions
	ThresholdOptions
	PollOptions
	SyncRunID string `long:"sync-run-id" env:"CENSUS_SYNC_RUN_ID" description:"Run to verify, defaults to the one persisted by the last trigger"`
	Wait      bool   `long:"wait" env:"CENSUS_WAIT" description:"Poll until the run completes instead of checking once"`
}

// Config holds the application configuration
type Config struct {
	LogLevel    string `short:"l" env:"CENSUS_LOG_LEVEL" long:"log-level" description:"Log level: debug|info|warn|error" default:"info"`
	StoreDSN    string `env:"CENSUS_STORE_DSN" long:"store-dsn" description:"Artifact store: file://<dir>, etcd://<hosts>/<prefix> or s3://<key>:<secret>@<host>/<bucket>; defaults to the artifacts directory"`
	PostgresDSN string `env:"CENSUS_POSTGRES_DSN" long:"postgres-dsn" description:"Optional PostgreSQL connection string for the run ledger"`
	Version     bool   `short:"v" long:"version" description:"Show version information"`

	Trigger TriggerCommand `command:"trigger" description:"Trigger a sync run and persist its id"`
	Verify  VerifyCommand  `command:"verify" alias:"check-status" description:"Verify the outcome of a sync run"`

	Command string `no-flag:"true"`
	Help    bool   `no-flag:"true"`

	job job
}

// job is the validated form of the active command
type job struct {
	ref        census.JobReference
	token      string
	runID      string
	thresholds sync.Thresholds
	poll       sync.PollConfig
	wait       bool
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ParseCLI parses command-line arguments and returns the configuration
func ParseCLI(args []string) (cmdOpts *Config, err error) {
	cmdOpts = new(Config)
	parser := flags.NewParser(cmdOpts, flags.HelpFlag)
	nonParsedArgs, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			cmdOpts.Help = true
		}
		if !flags.WroteHelp(err) {
			parser.WriteHelp(os.Stdout)
		}
		return cmdOpts, err
	}
	if len(nonParsedArgs) > 0 { // we don't expect any non-parsed arguments
		return cmdOpts, fmt.Errorf("unknown argument(s): %v", nonParsedArgs)
	}
	cmdOpts.Command = parser.Active.Name
	return cmdOpts, cmdOpts.resolve()
}

func (c *Config) resolve() (err error) {
	var (
		api     APIOptions
		thr     ThresholdOptions
		poll    PollOptions
		needsID bool
	)
	switch c.Command {
	case "trigger":
		api, thr, poll, needsID = c.Trigger.APIOptions, c.Trigger.ThresholdOptions, c.Trigger.PollOptions, true
		if c.job.wait, err = strconv.ParseBool(c.Trigger.CheckStatus); err != nil {
			return fmt.Errorf("--check-status must be TRUE or FALSE, got %q", c.Trigger.CheckStatus)
		}
	case "verify":
		api, thr, poll = c.Verify.APIOptions, c.Verify.ThresholdOptions, c.Verify.PollOptions
		c.job.runID = c.Verify.SyncRunID
		c.job.wait = c.Verify.Wait
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}

	if c.job.ref, c.job.token, err = api.reference(needsID); err != nil {
		return err
	}
	c.job.thresholds = sync.Thresholds{Failure: thr.FailureThreshold, Invalid: thr.InvalidThreshold}
	if err = c.job.thresholds.Validate(); err != nil {
		return err
	}
	if c.job.poll, err = poll.config(); err != nil {
		return err
	}
	return nil
}

// reference resolves the sync location. A --url wins over --api-url, a token
// embedded in it is used when --access-token is not given.
func (o APIOptions) reference(needsID bool) (census.JobReference, string, error) {
	ref := census.JobReference{BaseURL: o.APIURL, SyncID: o.SyncID}
	token := o.AccessToken
	if o.URL != "" {
		fromURL, urlToken, err := census.ParseTriggerURL(o.URL)
		if err != nil {
			return ref, "", err
		}
		if o.SyncID != "" && o.SyncID != fromURL.SyncID {
			return ref, "", fmt.Errorf("--sync-id %s contradicts sync %s of --url", o.SyncID, fromURL.SyncID)
		}
		ref = fromURL
		if token == "" {
			token = urlToken
		}
	}
	if needsID && ref.SyncID == "" {
		return ref, "", errors.New("either --sync-id or --url is required")
	}
	if token == "" {
		return ref, "", errors.New("an access token is required, pass --access-token or embed it in --url")
	}
	return ref, token, nil
}

func (o PollOptions) config() (cfg sync.PollConfig, err error) {
	if cfg.InitialDelay, err = time.ParseDuration(o.InitialDelay); err != nil {
		return cfg, fmt.Errorf("invalid --initial-delay: %w", err)
	}
	if cfg.Interval, err = time.ParseDuration(o.PollInterval); err != nil {
		return cfg, fmt.Errorf("invalid --poll-interval: %w", err)
	}
	if cfg.Timeout, err = time.ParseDuration(o.PollTimeout); err != nil {
		return cfg, fmt.Errorf("invalid --poll-timeout: %w", err)
	}
	cfg.MaxChecks = o.MaxPolls
	return cfg, cfg.Validate()
}

// ShowVersion prints version information and exits
func ShowVersion() {
	fmt.Printf("census_runner version %s\n", version)
	if commit != "none" && commit != "" {
		fmt.Printf("commit: %s\n", commit)
	}
	if date != "unknown" && date != "" {
		fmt.Printf("built: %s\n", date)
	}
}

// SetupLogging configures the logging system with structured output
func SetupLogging(logLevel string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(log.NewFormatter(false))
	logrus.SetReportCaller(false)

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"pid":     os.Getpid(),
	}).Debug("census_runner logging initialized")

	return nil
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS. We then handle this by calling
// our clean up procedure and exiting the program.
func SetupCloseHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Debug("SetupCloseHandler received an interrupt from OS. Stop waiting...")
		cancel()
	}()
}

// run executes the parsed command and returns the process exit code
func run(ctx context.Context, config *Config) int {
	st, err := store.Open(ctx, config.StoreDSN)
	if err != nil {
		logrus.WithError(err).Error("Failed to open artifact store")
		return exitCode(sync.StoreFailed)
	}
	defer st.Close()
	if fs, ok := st.(*store.FileStore); ok {
		logrus.WithField("dir", fs.Root()).Debug("Storing artifacts on disk")
	}

	var recorder sync.Recorder
	if config.PostgresDSN != "" {
		ledger, err := db.OpenLedger(ctx, config.PostgresDSN)
		if err != nil {
			logrus.WithError(err).Warn("Run ledger unavailable, continuing without it")
		} else {
			defer ledger.Close()
			recorder = ledger
		}
	}

	j := config.job
	client := census.NewClient(ctx, j.ref.BaseURL, j.token)
	logrus.WithField("api_url", client.BaseURL()).Debug("Using Census API")
	svc := sync.NewService(client, st, recorder)

	runID := j.runID
	switch config.Command {
	case "trigger":
		if runID, err = svc.Trigger(ctx, j.ref.SyncID); err != nil {
			return report(sync.Outcome{}, err)
		}
		if !j.wait {
			logrus.WithField("sync_run_id", runID).Info("Sync run triggered, not waiting for it to complete")
			return exitCode(sync.Success)
		}
	case "verify":
		if runID == "" {
			if runID, err = sync.LoadRunID(ctx, st); err != nil {
				if errors.Is(err, sync.ErrNoRunID) {
					logrus.Error("No sync run id found. Run trigger first or pass --sync-run-id")
				} else {
					logrus.WithError(err).Error("Failed to load sync run id")
				}
				return exitCode(sync.StoreFailed)
			}
		}
	}

	if j.wait {
		return report(svc.WaitForCompletion(ctx, runID, j.thresholds, j.poll))
	}
	return report(svc.Check(ctx, runID, j.thresholds))
}

// report logs the outcome and maps it to the exit code
func report(out sync.Outcome, err error) int {
	if err != nil {
		result, ok := sync.ResultOf(err)
		if !ok {
			logrus.WithError(err).Error("census_runner failed")
			return exitUsage
		}
		logrus.WithField("result", result).Error(err.Error())
		return exitCode(result)
	}

	entry := logrus.WithField("result", out.Result)
	if out.Snapshot != nil {
		entry = entry.WithFields(logrus.Fields{
			"sync_run_id": out.Snapshot.RunID,
			"status":      out.Snapshot.Status,
		})
	}
	if out.Result == sync.Success {
		entry.Info(out.Message)
	} else {
		entry.Error(out.Message)
	}
	return exitCode(out.Result)
}

func main() {
	// Quick check for version flags before full parsing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			ShowVersion()
			os.Exit(0)
		}
	}

	config, err := ParseCLI(os.Args[1:])
	if err != nil {
		if config != nil && config.Help {
			os.Exit(0)
		}
		fmt.Printf("Error: %s\n", err)
		os.Exit(exitUsage)
	}

	if err := SetupLogging(config.LogLevel); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(exitUsage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	SetupCloseHandler(cancel)

	code := run(ctx, config)
	cancel()
	os.Exit(code)
}
