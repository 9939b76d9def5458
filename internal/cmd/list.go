package cmd

import (
	"fmt"
	"strings"

	"github.com/proxherd/proxherd/internal/store"
	"github.com/proxherd/proxherd/internal/util"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List proxy workers",
	Long: `List every recorded proxy with its live state.

A record alone does not mean a running worker, so process liveness is
re-verified on every call: a worker that died without a stop shows up
as dead until the daemon sweeps its record away.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print records as JSON")
}

// proxyStatus is a record plus the process state verified at call time.
type proxyStatus struct {
	store.ProxyConfig
	Alive bool `json:"alive"`
	Ready bool `json:"ready"`
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.store.List()
	if err != nil {
		return err
	}

	statuses := make([]proxyStatus, 0, len(records))
	for _, rec := range records {
		statuses = append(statuses, proxyStatus{
			ProxyConfig: *rec,
			Alive:       rec.PID != 0 && app.store.IsProcessAlive(rec.PID),
			Ready:       rec.Ready(),
		})
	}

	if listJSON {
		return printJSON(statuses)
	}
	printProxyTable(statuses)
	return nil
}

func printProxyTable(statuses []proxyStatus) {
	if len(statuses) == 0 {
		fmt.Println("No proxies running.")
		return
	}

	fmt.Printf("%-38s %-8s %-24s %-24s %-9s %s\n", "ID", "PID", "URL", "UPSTREAM", "STATE", "CREATED")
	fmt.Println(strings.Repeat("─", 114))
	for _, s := range statuses {
		fmt.Printf("%-38s %-8d %-24s %-24s %-9s %s\n",
			s.ID,
			s.PID,
			s.LocalURL,
			util.TruncateString(s.Upstream, 24),
			stateLabel(s),
			util.FormatTimeAgo(s.CreatedAt),
		)
	}
	fmt.Printf("\n%d proxies\n", len(statuses))
}

func stateLabel(s proxyStatus) string {
	switch {
	case s.Alive && s.Ready:
		return "ready"
	case s.Alive:
		return "starting"
	default:
		return "dead"
	}
}
