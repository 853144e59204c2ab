package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kuplace/kupletalk/pkg/api"
	"github.com/kuplace/kupletalk/pkg/chatstream"
	"github.com/kuplace/kupletalk/pkg/config"
	"github.com/kuplace/kupletalk/pkg/guide"
	"github.com/kuplace/kupletalk/pkg/session"
	"github.com/kuplace/kupletalk/pkg/transcript"
	"github.com/kuplace/kupletalk/pkg/ui"
)

var settings config.Settings

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kupletalk",
		Short: "kupletalk is a terminal client for the KUPLE campus assistant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			settings.ServerURL = config.ServerURLFromEnv(settings.ServerURL)
			return config.InitLogging(settings.LogLevel, settings.LogFile)
		},
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&settings.ServerURL, "server-url", "", "backend base URL (default $"+config.EnvServerURL+")")
	pf.StringVar(&settings.LogLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&settings.LogFile, "log-file", "", "write logs to this file instead of stderr")

	root.Flags().BoolVar(&settings.Debug, "debug", false, "open the debug drawer at startup")
	root.Flags().StringVar(&settings.TranscriptDB, "transcript-db", "", "archive messages to this sqlite file")

	root.AddCommand(newChatsCmd())
	root.AddCommand(newAskCmd())
	return root
}

// buildController assembles the REST client, the websocket dialer and the
// optional transcript recorder. The returned cleanup closes everything the
// controller itself does not own.
func buildController() (*session.Controller, func(), error) {
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(settings.ServerURL)
	if err != nil {
		return nil, nil, err
	}
	wsDialer, err := chatstream.NewDialer(settings.ServerURL)
	if err != nil {
		return nil, nil, err
	}
	dialer := session.DialerFunc(func(ctx context.Context, chatID string) (session.Stream, error) {
		return wsDialer.Dial(ctx, chatID)
	})

	opts := []session.Option{}
	cleanup := func() {}
	if settings.TranscriptDB != "" {
		store, err := transcript.Open(settings.TranscriptDB)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open transcript store")
		}
		opts = append(opts, session.WithRecorder(store))
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Str("component", "cli").Msg("transcript store close failed")
			}
		}
	}

	ctrl, err := session.NewController(client, dialer, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("stdout is not a terminal; use 'kupletalk ask' for scripted queries")
	}

	gd, err := guide.Load()
	if err != nil {
		return err
	}
	ctrl, cleanup, err := buildController()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	program := tea.NewProgram(
		ui.NewModel(ctx, ctrl, gd, settings.Debug),
		tea.WithAltScreen(),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		_, err := program.Run()
		ctrl.Close()
		return err
	})
	eg.Go(func() error {
		<-egCtx.Done()
		program.Quit()
		return nil
	})
	return eg.Wait()
}
