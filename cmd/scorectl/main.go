package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/handler"
)

var Version = "dev"

// dial opens the connection used by every subcommand. Tests swap it for an
// in-process listener.
var dial = func(target string) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

type globalFlags struct {
	server  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "scorectl",
		Short:         "scorectl - trust scoring and campaign moderation client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	defaultServer := os.Getenv("SCORING_GRPC_ADDR")
	if defaultServer == "" {
		defaultServer = "localhost:50051"
	}
	root.PersistentFlags().StringVar(&flags.server, "server", defaultServer, "scoring gRPC server address")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(trustCmd(flags))
	root.AddCommand(moderateCmd(flags))
	return root
}

// withClient runs fn against a fresh scoring client bound by the request timeout.
func withClient(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, *handler.ScoringClient) (interface{}, error)) error {
	conn, err := dial(flags.server)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", flags.server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	result, err := fn(ctx, handler.NewScoringClient(conn))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
