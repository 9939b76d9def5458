package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/proxherd/proxherd/internal/supervisor"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new proxy worker",
	Long: `Start a detached proxy worker and wait until it accepts connections.

The worker binds 127.0.0.1 on the requested port (or an OS-chosen port
when none is given) and keeps running after this command returns. With
no upstream the worker runs in DIRECT mode.

Examples:
  # Start a direct proxy on any free port
  proxherd start

  # Forward to an upstream proxy, pin the local port
  proxherd start --upstream 10.0.0.1:8080 --port 3128

  # Machine-readable output
  proxherd start --json`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var (
	startUpstream string
	startPort     int
	startProfile  string
	startJSON     bool
)

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVarP(&startUpstream, "upstream", "u", "", "Upstream target (host:port or URL); empty means DIRECT")
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Requested local port (0 picks any free port)")
	startCmd.Flags().StringVar(&startProfile, "profile", "", "Profile identifier to associate with this proxy")
	startCmd.Flags().BoolVar(&startJSON, "json", false, "Print the readiness-confirmed record as JSON")
}

func runStart(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// Ctrl+C abandons the readiness wait; the worker itself keeps
	// running and can be stopped by id
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := buildSupervisor(app)
	rec, err := sup.Start(ctx, supervisor.StartOptions{
		Upstream:  startUpstream,
		Port:      startPort,
		ProfileID: startProfile,
	})
	if err != nil {
		return err
	}

	if startJSON {
		return printJSON(rec)
	}

	fmt.Printf("Started proxy %s\n", rec.ID)
	fmt.Printf("  URL:      %s\n", rec.LocalURL)
	fmt.Printf("  Port:     %d\n", rec.BoundPort)
	fmt.Printf("  PID:      %d\n", rec.PID)
	fmt.Printf("  Upstream: %s\n", rec.Upstream)
	return nil
}
