package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/launcher"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "View a worker's log file",
	Long: `View the stderr log of a proxy worker.

Workers write to a per-identifier log file in the worker log directory,
and the file outlives the worker, so logs of stopped proxies remain
readable until the OS cleans its temporary directory.

Examples:
  # Show the last 50 lines
  proxherd logs 1f0c9e42-7a31-4c07-9f4e-1d2ad94be111

  # Show the whole file
  proxherd logs 1f0c9e42-7a31-4c07-9f4e-1d2ad94be111 -n 0

  # Follow output in real-time
  proxherd logs 1f0c9e42-7a31-4c07-9f4e-1d2ad94be111 -f`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

var (
	logsTail   int
	logsFollow bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logPath := launcher.LogPath(workerLogDir(cfg), args[0])

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Printf("No log file for proxy %s\n", args[0])
		fmt.Println("Expected at:", logPath)
		return nil
	}

	if logsFollow {
		return followLog(logPath)
	}
	return displayLog(logPath, logsTail)
}

// displayLog prints the last tail lines of the file, or all of it when
// tail is zero.
func displayLog(logPath string, tail int) error {
	if tail > 0 {
		lines, err := launcher.TailFile(logPath, tail)
		if err != nil {
			return errors.Wrap(err, "failed to read log file")
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer file.Close()

	if _, err := io.Copy(os.Stdout, file); err != nil {
		return errors.Wrap(err, "error reading log file")
	}
	return nil
}

// followLog implements tail -f behavior for the log file
func followLog(logPath string) error {
	file, err := os.Open(logPath)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer file.Close()

	// Seek to end of file
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "failed to seek to end")
	}

	fmt.Printf("Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return errors.Wrap(err, "error reading log file")
		}
		fmt.Print(line)
	}
}
