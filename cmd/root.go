// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/router/internal/daemon"
)

// ErrUsage is returned when the interface arguments are missing. The usage
// line has already been printed.
var ErrUsage = errors.New("usage")

const usageLine = "USAGE: router <NETWORK INTERFACE 1> <NETWORK INTERFACE 2>"

var (
	// Global flags
	configFile string
	pidFile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "router [flags] <NETWORK INTERFACE 1> <NETWORK INTERFACE 2>",
	Short: "Two-port ARP-resolving frame router",
	Long: `router forwards IPv4 frames between two network interfaces.

Frames received on one interface are sent out of the other with the
destination MAC resolved through ARP and the source MAC set to the
outgoing interface. ARP replies addressed to either interface populate
a shared ARP table; unresolved destinations trigger one broadcast ARP
request and a short bounded wait.

An interface whose name matches a subcommand (validate, version) must
follow "--", for example: router -- validate eth1`,
	Version:       version,
	Args:          requireInterfaces,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRouter(cmd.Context(), [2]string{args[0], args[1]})
	},
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
// This is called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (built-in defaults when empty)")
	rootCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func requireInterfaces(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(cmd.ErrOrStderr(), usageLine)
		return ErrUsage
	}
	return nil
}

func runRouter(ctx context.Context, interfaces [2]string) error {
	d, err := daemon.New(configFile, interfaces, pidFile)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	return d.Run(ctx)
}
