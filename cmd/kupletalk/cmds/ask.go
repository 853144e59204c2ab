package cmds

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kuplace/kupletalk/pkg/session"
)

var (
	askTimeout time.Duration
	askKeep    bool
	askDebug   bool
)

// newAskCmd builds the one-shot query command: create a throwaway chat, send
// the question, print the first final answer, delete the chat again.
func newAskCmd() *cobra.Command {
	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	ask.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "how long to wait for the answer")
	ask.Flags().BoolVar(&askKeep, "keep", false, "keep the chat on the backend afterwards")
	ask.Flags().BoolVar(&askDebug, "show-debug", false, "print debug tokens to stderr while waiting")
	return ask
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("empty question")
	}

	ctrl, cleanup, err := buildController()
	if err != nil {
		return err
	}
	defer cleanup()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	chat, err := ctrl.Create(ctx, question)
	if err != nil {
		return err
	}

	answer, err := waitForAnswer(ctx, ctrl)
	if err != nil {
		return err
	}
	fmt.Println(answer)

	if !askKeep {
		if err := ctrl.Delete(context.Background(), chat.ID); err != nil {
			log.Warn().Err(err).Str("component", "cli").Str("chat_id", chat.ID).Msg("could not delete throwaway chat")
		}
	}
	return nil
}

func waitForAnswer(ctx context.Context, ctrl *session.Controller) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", errors.New("timed out waiting for an answer")
		case ev, ok := <-ctrl.Events():
			if !ok {
				return "", errors.New("event stream closed before an answer arrived")
			}
			switch e := ev.(type) {
			case session.DebugAppended:
				if askDebug {
					fmt.Fprintln(os.Stderr, e.Chunk)
				}
			case session.MessageAppended:
				if !e.Message.IsUser() {
					return e.Message.Content, nil
				}
			case session.Failure:
				return "", errors.Wrap(e.Err, e.Op)
			}
		}
	}
}
