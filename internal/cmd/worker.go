package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/logging"
	"github.com/proxherd/proxherd/internal/store"
	"github.com/proxherd/proxherd/internal/worker"
	"github.com/spf13/cobra"
)

// proxyWorkerCmd is the plumbing entry point the launcher invokes. It
// never appears in help output; users manage workers through start and
// stop.
var proxyWorkerCmd = &cobra.Command{
	Use:    "proxy-worker",
	Short:  "Internal worker-mode commands",
	Hidden: true,
}

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a proxy worker in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runWorkerStart,
}

var workerID string

func init() {
	rootCmd.AddCommand(proxyWorkerCmd)
	proxyWorkerCmd.AddCommand(workerStartCmd)

	workerStartCmd.Flags().StringVar(&workerID, "id", "", "Identifier of the record this worker owns")
	_ = workerStartCmd.MarkFlagRequired("id")
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	// Worker logs go to stderr: the launcher pointed stderr at the
	// per-identifier log file
	logger, err := logging.NewLogger("", cfg.Logging.Level)
	if err != nil {
		logger = logging.NopLogger()
	}
	defer logger.Close()

	st, err := store.New(cfg.Store.ResolveDir(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(st, cfg.Worker, logger)
	return w.Run(ctx, workerID)
}
