package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/cli"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/paths"
	"github.com/grovetools/lombridge/tui/theme"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component]",
		Short: "Show lombridge log files",
		Long: `Print the most recent log file of a component. The component defaults
to the host.

Examples:
  # Follow the host log
  lombridge logs -f

  # Last 50 client lines as JSON Lines
  lombridge logs client --tail 50 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of the log (default: all)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	component := "host"
	if len(args) == 1 {
		component = args[0]
	}
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	asJSON := cli.GetOptions(cmd).JSONOutput
	out := cmd.OutOrStdout()

	path, err := latestLogFile(paths.LogDir(), component)
	if err != nil {
		return err
	}

	lines, err := readLastLines(path, tailLines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		printLogLine(out, component, line, asJSON)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("cannot follow %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			printLogLine(out, component, line.Text, asJSON)
		}
	}
}

// latestLogFile returns the newest <component>-<date>.log in dir.
func latestLogFile(dir, component string) (string, error) {
	if dir == "" {
		return "", errors.NotFound("log directory", component)
	}
	matches, err := filepath.Glob(filepath.Join(dir, component+"-*.log"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", errors.NotFound("log file", component)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// readLastLines reads path and keeps the last n lines, or all when n < 0.
func readLastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n >= 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

func printLogLine(w io.Writer, component, line string, asJSON bool) {
	if asJSON {
		var raw json.RawMessage
		if json.Unmarshal([]byte(line), &raw) == nil {
			fmt.Fprintln(w, line)
			return
		}
		data, _ := json.Marshal(map[string]string{"component": component, "line": line})
		fmt.Fprintln(w, string(data))
		return
	}
	printLogText(w, component, line)
}

// printLogText renders JSON log lines with styled fields and passes text
// lines through unchanged.
func printLogText(w io.Writer, component, line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fmt.Fprintln(w, line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	if c, ok := logMap["component"].(string); ok {
		component = c
	}

	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsedTime, _ = time.Parse(time.RFC3339, ts)
	}
	timeStr := parsedTime.Format("15:04:05")

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Info
	default:
		levelStyle = theme.DefaultTheme.Muted
	}
	levelStr := levelStyle.Render(strings.ToUpper(level))

	sortedKeys := []string{}
	for k := range logMap {
		if k != "time" && k != "level" && k != "msg" && k != "component" {
			sortedKeys = append(sortedKeys, k)
		}
	}
	sort.Strings(sortedKeys)

	otherFields := make([]string, 0, len(sortedKeys))
	for _, k := range sortedKeys {
		otherFields = append(otherFields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), logMap[k]))
	}

	fmt.Fprintf(w, "%s %s %s [%s] %s\n",
		timeStr,
		levelStr,
		msg,
		theme.DefaultTheme.Muted.Render(component),
		strings.Join(otherFields, " "),
	)
}
