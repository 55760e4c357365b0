package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hsb-core/internal/network"
)

const defaultDiscoveryPort = 18000

func newProbeCmd() *cobra.Command {
	var (
		target  string
		port    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Find gateways on the local network",
		Long: `Send the UDP discovery question and list every gateway that answers.

Without --target the question is broadcast on the local segment.`,
		Example: `  # Broadcast on the default discovery port
  hsbd probe

  # Ask one gateway directly
  hsbd probe --target 192.168.1.20:18000 --timeout 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if target == "" {
				target = network.BroadcastTarget(port)
			}

			found, err := network.Probe(cmd.Context(), target, timeout)
			if errors.Is(err, network.ErrNoResponse) {
				return fmt.Errorf("no gateway answered on %s within %s", target, timeout)
			}
			if err != nil {
				return err
			}
			for _, ip := range found {
				fmt.Fprintln(cmd.OutOrStdout(), ip)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Address to probe (host:port); default is the broadcast address")
	cmd.Flags().IntVar(&port, "port", defaultDiscoveryPort, "Discovery port used with the broadcast address")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "How long to wait for answers")
	return cmd
}
