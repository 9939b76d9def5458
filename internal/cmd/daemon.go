package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/proxherd/proxherd/internal/daemon"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background janitor",
	Long: `The daemon watches the record store and removes records whose
worker process has died, so crashed workers do not linger in list
output forever. Run it in the foreground with 'daemon run' or register
it as a login item with 'daemon enable'.`,
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconcile loop in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

var daemonEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Register the daemon to start at login",
	Args:  cobra.NoArgs,
	RunE:  runDaemonEnable,
}

var daemonDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the login registration",
	Args:  cobra.NoArgs,
	RunE:  runDaemonDisable,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether login autostart is registered",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonRunCmd)
	daemonCmd.AddCommand(daemonEnableCmd)
	daemonCmd.AddCommand(daemonDisableCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("proxherd daemon watching %s\n", app.store.Dir())
	rec := daemon.New(app.store, app.cfg.Daemon, app.logger)
	return rec.Run(ctx)
}

func runDaemonEnable(cmd *cobra.Command, args []string) error {
	if err := daemon.EnableAutostart(); err != nil {
		return err
	}
	fmt.Println("Daemon registered to start at login.")
	return nil
}

func runDaemonDisable(cmd *cobra.Command, args []string) error {
	if err := daemon.DisableAutostart(); err != nil {
		return err
	}
	fmt.Println("Daemon login registration removed.")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	enabled, err := daemon.AutostartEnabled()
	if err != nil {
		return err
	}
	if enabled {
		fmt.Println("Login autostart: enabled")
	} else {
		fmt.Println("Login autostart: disabled")
	}
	return nil
}
