// Command careplan submits care plan orders and tracks them until the plan
// can be downloaded. The active order is kept in a session file between
// invocations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/config"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/logging"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/session"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/tracker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	rootCmd := newRootCommand(a)
	err := rootCmd.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "careplan: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	apiURL      string
	logLevel    string
	sessionFile string
}

// app holds what every subcommand needs once the root has set it up.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	closer  io.Closer
	api     *client.Client
	tracker *tracker.Tracker
	session session.Session
	out     io.Writer
}

func newRootCommand(a *app) *cobra.Command {
	var flags globalFlags
	cmd := &cobra.Command{
		Use:   "careplan",
		Short: "Submit and track care plan generation orders",
		Long: `careplan submits care plan orders to the care plan API, refreshes their status on demand,
searches past orders, and downloads completed care plans. The active order survives between
invocations in a session file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "Care plan API base URL (default $CAREPLAN_API_URL or http://localhost:8000)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.sessionFile, "session-file", "", "Session file holding the active order")
	cmd.AddCommand(
		newSubmitCmd(a),
		newRefreshCmd(a),
		newStatusCmd(a),
		newSearchCmd(a),
		newSelectCmd(a),
		newDownloadCmd(a),
		newClearCmd(a),
		newTUICmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, flags globalFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.sessionFile != "" {
		cfg.SessionFile = flags.sessionFile
	}
	if cmd.Name() == "tui" && cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(cfg.SessionFile), "careplan.log")
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()

	logger, closer, err := logging.New("careplan", logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	a.log, a.closer = logger, closer

	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		return err
	}
	a.session = sess
	a.api = client.New(cfg.APIURL)

	opts := []tracker.Option{
		tracker.WithPolicy(policyFor(cfg.Arbitration)),
		tracker.WithLogger(logger),
	}
	if sess.Order != nil {
		if sess.APIURL != "" && sess.APIURL != cfg.APIURL {
			logger.Warn().Str("session_api", sess.APIURL).Str("api", cfg.APIURL).
				Msg("session belongs to another API; starting without an active order")
		} else {
			opts = append(opts, tracker.WithInitial(*sess.Order))
		}
	}
	a.tracker = tracker.New(a.api, opts...)
	return nil
}

// persist writes the active order and last query back to the session file.
func (a *app) persist() error {
	s := session.Session{APIURL: a.cfg.APIURL, LastQuery: a.session.LastQuery}
	if rec, ok := a.tracker.Store.Active(); ok {
		s.Order = &rec
	}
	if err := session.Save(a.cfg.SessionFile, s); err != nil {
		a.log.Error().Err(err).Str("path", a.cfg.SessionFile).Msg("save session")
		return err
	}
	return nil
}

// run executes fn and saves the session whatever fn returned, so failed
// records are kept too.
func (a *app) run(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if perr := a.persist(); perr != nil && err == nil {
		err = perr
	}
	return err
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func policyFor(arb config.Arbitration) tracker.Policy {
	if arb == config.ArbitrationLastWriteWins {
		return tracker.PolicyLastWriteWins
	}
	return tracker.PolicyLatestIssued
}
