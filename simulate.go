package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
)

type simulateOptions struct {
	tenantID       string
	conversationID string
	customerID     string
	redis          bool
}

func newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Chat with the bot from the terminal",
		Long: `Reads one customer message per line from stdin and prints the bot's reply.
Lines starting with a slash are commands: /resume hands an escalated
conversation back to the bot, /new starts a new conversation, /quit exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg, opts.redis)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			return newSession(rt.runner, opts, os.Stdin, cmd.OutOrStdout()).run(ctx)
		},
	}
	cmd.Flags().StringVar(&opts.tenantID, "tenant", commerce.DemoTenantID, "Tenant id the conversation belongs to")
	cmd.Flags().StringVar(&opts.conversationID, "conversation", "", "Conversation id to continue (default: a new one)")
	cmd.Flags().StringVar(&opts.customerID, "customer", "", "Customer id attached to the conversation")
	cmd.Flags().BoolVar(&opts.redis, "redis", false, "Persist conversations in Redis instead of memory")
	return cmd
}

type session struct {
	runner         graph.Runner
	tenantID       string
	conversationID string
	customerID     string

	in          *bufio.Reader
	out         io.Writer
	interactive bool
	profile     termenv.Profile
}

func newSession(runner graph.Runner, opts *simulateOptions, in *os.File, out io.Writer) *session {
	conv := opts.conversationID
	if conv == "" {
		conv = uuid.NewString()
	}
	return &session{
		runner:         runner,
		tenantID:       opts.tenantID,
		conversationID: conv,
		customerID:     opts.customerID,
		in:             bufio.NewReader(in),
		out:            out,
		interactive:    term.IsTerminal(int(in.Fd())),
		profile:        termenv.ColorProfile(),
	}
}

func (s *session) label(text, color string) string {
	return termenv.String(text).Foreground(s.profile.Color(color)).Bold().String()
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintf(s.out, "%s conversation %s\n", s.label("●", "#818cf8"), s.conversationID)
	for {
		if s.interactive {
			fmt.Fprint(s.out, s.label("you> ", "#a78bfa"))
		}
		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		text := strings.TrimSpace(line)
		if text != "" {
			if done := s.handle(ctx, text); done {
				return nil
			}
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
	}
}

// handle processes one input line and reports whether the session should end.
func (s *session) handle(ctx context.Context, text string) bool {
	switch text {
	case "/quit", "/exit":
		return true
	case "/new":
		s.conversationID = uuid.NewString()
		fmt.Fprintf(s.out, "%s conversation %s\n", s.label("●", "#818cf8"), s.conversationID)
		return false
	case "/resume":
		if err := s.runner.Resume(ctx, s.tenantID, s.conversationID); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", s.label("error>", "#f87171"), err)
		} else {
			fmt.Fprintf(s.out, "%s conversation handed back to the bot\n", s.label("●", "#818cf8"))
		}
		return false
	}

	start := time.Now()
	res, err := s.runner.Invoke(ctx, model.InboundMessage{
		TenantID:       s.tenantID,
		ConversationID: s.conversationID,
		RequestID:      uuid.NewString(),
		CustomerID:     s.customerID,
		Text:           text,
	})
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", s.label("error>", "#f87171"), err)
		return false
	}
	fmt.Fprintf(s.out, "%s %s\n", s.label("bot>", "#34d399"), res.Response)
	meta := fmt.Sprintf("[%s/%s %s", res.Journey, res.Step, time.Since(start).Round(time.Millisecond))
	if res.CostUSD > 0 {
		meta += fmt.Sprintf(" $%.5f", res.CostUSD)
	}
	if res.Escalated && res.Escalation != nil {
		meta += fmt.Sprintf(" escalated: %s", res.Escalation.Reason)
	}
	fmt.Fprintln(s.out, termenv.String(meta+"]").Faint().String())
	return false
}
