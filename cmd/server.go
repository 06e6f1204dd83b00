package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/pyfinder/cli"
	"github.com/grovetools/pyfinder/internal/session"
	"github.com/grovetools/pyfinder/logging"
	"github.com/spf13/cobra"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the JSON-RPC protocol on stdin and stdout",
		Long: `Serve the discovery protocol to a single client over stdin and stdout.

Requests and notifications are Content-Length framed JSON-RPC 2.0
messages. Diagnostics go to stderr; stdout carries protocol frames only.
The server exits when the client closes stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := session.New(os.Stdin, os.Stdout, session.Options{Config: cfg})
			if err != nil {
				return err
			}
			logging.NewLogger("server").WithField("session", s.ID()).Debug("Serving on stdio")
			if err := s.Serve(ctx); err != nil && ctx.Err() != context.Canceled {
				return err
			}
			return nil
		},
	}
	return cmd
}
