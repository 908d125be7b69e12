package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/errors"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show or tail the client log",
	Long: `View the Memora client log, by default ~/.memora/memora.log.

Every backend request is logged with its X-Request-ID, so a failing request
can be matched with the server side.

Examples:
  # Show the last 20 entries
  memora logs

  # Show the last 50 entries
  memora logs --lines 50

  # Show the entries of one request
  memora logs --request 0f8e3c1a-...

  # Follow the log in real time
  memora logs --follow
`,
	Args: cobra.NoArgs,
	RunE: withApp(runLogs),
}

func init() {
	logsCmd.Flags().IntP("lines", "n", 20, "Number of recent entries to show")
	logsCmd.Flags().String("request", "", "Only show entries for this request ID")
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output in real time")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string, a *app) error {
	lines, _ := cmd.Flags().GetInt("lines")
	request, _ := cmd.Flags().GetString("request")
	follow, _ := cmd.Flags().GetBool("follow")

	path := a.cfg.LogPath()
	if path == "-" {
		return NewErrorWithSuggestions("logging goes to stderr, there is no log file", nil,
			"Unset logging.file to log to "+a.cfg.Home)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFoundError(path)
		}
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	match := func(line string) bool {
		return strings.TrimSpace(line) != "" && (request == "" || strings.Contains(line, request))
	}

	out := cmd.OutOrStdout()
	if err := tailLog(out, file, lines, match); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	return followLog(cmd.Context(), out, file, match)
}

// tailLog prints the last n matching lines of r.
func tailLog(w io.Writer, r io.Reader, n int, match func(string) bool) error {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); match(line) {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log: %w", err)
	}

	start := 0
	if n > 0 && len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		fmt.Fprintln(w, formatLogLine(line))
	}
	return nil
}

// followLog prints lines appended to r until ctx is done.
func followLog(ctx context.Context, w io.Writer, r io.Reader, match func(string) bool) error {
	reader := bufio.NewReader(r)
	var partial strings.Builder
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		chunk, err := reader.ReadString('\n')
		partial.WriteString(chunk)
		switch {
		case err == nil:
			if line := strings.TrimRight(partial.String(), "\n"); match(line) {
				fmt.Fprintln(w, formatLogLine(line))
			}
			partial.Reset()
			continue
		case err != io.EOF:
			return fmt.Errorf("error reading log: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// formatLogLine shortens JSON records to "[time] LEVEL msg key=value...".
// Text records are printed as they are.
func formatLogLine(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	ts, _ := record["time"].(string)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = t.Format("15:04:05")
	}
	level, _ := record["level"].(string)
	msg, _ := record["msg"].(string)
	delete(record, "time")
	delete(record, "level")
	delete(record, "msg")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %s", ts, level, msg)
	for _, k := range sortedKeys(record) {
		fmt.Fprintf(&b, " %s=%v", k, record[k])
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
