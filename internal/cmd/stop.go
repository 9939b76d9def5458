package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/proxherd/proxherd/internal/errors"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop a proxy worker",
	Long: `Stop the worker for the given id and delete its record.

Stopping an id that has no record is a no-op, not an error. With --all
every recorded proxy is stopped independently and the per-proxy
outcomes are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

var stopAll bool

func init() {
	rootCmd.AddCommand(stopCmd)

	stopCmd.Flags().BoolVarP(&stopAll, "all", "a", false, "Stop every recorded proxy")
}

func runStop(cmd *cobra.Command, args []string) error {
	if stopAll && len(args) > 0 {
		return errors.NewValidationError("cannot combine --all with a proxy id")
	}
	if !stopAll && len(args) == 0 {
		return errors.NewValidationError("provide a proxy id or --all")
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sup := buildSupervisor(app)

	if stopAll {
		outcomes, err := sup.StopAll(ctx)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Println("No proxies to stop.")
			return nil
		}
		for _, o := range outcomes {
			switch {
			case o.Err != nil:
				fmt.Printf("%s: failed: %v\n", o.ID, o.Err)
			case o.Stopped:
				fmt.Printf("%s: stopped\n", o.ID)
			default:
				fmt.Printf("%s: already gone\n", o.ID)
			}
		}
		return nil
	}

	stopped, err := sup.Stop(ctx, args[0])
	if err != nil {
		return err
	}
	if !stopped {
		fmt.Printf("No proxy with id %s, nothing to stop.\n", args[0])
		return nil
	}
	fmt.Printf("Stopped proxy %s\n", args[0])
	return nil
}
