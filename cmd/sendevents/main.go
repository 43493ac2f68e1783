// Command sendevents posts one install and one purchase event to a running
// ingestion service and prints the responses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/game-event-tracking/pkg/sdk"
)

type options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "sendevents",
		Short:         "Send sample install and purchase events",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "http://127.0.0.1:8080", "ingestion service base URL")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", os.Getenv("EVENT_API_KEY"), "bearer token (defaults to $EVENT_API_KEY)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-attempt request timeout")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", 3, "retries for 429 and 5xx responses")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	cfg := sdk.DefaultConfig(opts.BaseURL)
	cfg.APIKey = opts.APIKey
	cfg.Timeout = opts.Timeout
	cfg.MaxRetries = opts.MaxRetries
	client := sdk.NewClient(cfg)

	base := sdk.BaseEvent{
		PlayerID: "player_1",
		AppID:    "com.game.test",
		Platform: sdk.PlatformIOS,
	}

	install := sdk.BuildInstall(sdk.InstallEvent{BaseEvent: base})
	purchase := sdk.BuildPurchase(sdk.PurchaseEvent{
		BaseEvent:    base,
		ProductID:    "gems_pack_01",
		AmountMicros: 4_990_000,
		Currency:     "EUR",
	})

	for _, ev := range []sdk.Event{install, purchase} {
		resp, err := client.Send(ctx, ev)
		if err != nil {
			return fmt.Errorf("send %s: %w", ev.Type(), err)
		}
		fmt.Fprintf(out, "%s %s -> %d %s\n", ev.Type(), ev.ID(), resp.StatusCode, resp.Body)
	}
	return nil
}
