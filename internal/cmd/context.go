package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CommandContext holds the global flags of one invocation. Commands read it
// instead of package variables so tests can run commands side by side.
type CommandContext struct {
	ConfigPath  string
	APIURL      string
	LogLevel    string
	LogFormat   string
	LogFile     string
	MetricsFile string
	Yes         bool
	Format      string
}

// NewCommandContext extracts the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()
	c := &CommandContext{}

	strs := []struct {
		name string
		dst  *string
	}{
		{"config", &c.ConfigPath},
		{"api-url", &c.APIURL},
		{"log-level", &c.LogLevel},
		{"log-format", &c.LogFormat},
		{"log-file", &c.LogFile},
		{"metrics-file", &c.MetricsFile},
		{"format", &c.Format},
	}
	for _, s := range strs {
		v, err := flags.GetString(s.name)
		if err != nil {
			return nil, err
		}
		*s.dst = v
	}

	yes, err := flags.GetBool("yes")
	if err != nil {
		return nil, err
	}
	c.Yes = yes

	switch c.Format {
	case "", formatText:
		c.Format = formatText
	case formatJSON, formatYAML:
	default:
		return nil, NewErrorWithSuggestions(
			fmt.Sprintf("unknown output format %q", c.Format),
			nil,
			"Use --format text, --format json or --format yaml",
		)
	}
	return c, nil
}
