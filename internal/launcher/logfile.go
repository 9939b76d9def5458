package launcher

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// logFilePrefix names worker log files so they are recognizable in the
// temp directory and collision-free per proxy id.
const logFilePrefix = "proxherd-proxy-"

// LogPath returns the deterministic log file path for a proxy id under
// the given directory.
func LogPath(dir, id string) string {
	return filepath.Join(dir, fmt.Sprintf("%s%s.log", logFilePrefix, id))
}

// TailFile returns the last n lines of the file at path. A missing or
// unreadable file returns the error without panicking, so diagnostic
// paths can ignore it and proceed with an empty tail.
func TailFile(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
