package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// NewCommand builds the "setup" command tree for a server binary.
// in and out carry the confirmation prompt and report text.
func NewCommand(serverType string, in io.Reader, out io.Writer) *cli.Command {
	reader := bufio.NewReader(in)

	return &cli.Command{
		Name:      "setup",
		Usage:     "Configure MCP client integration",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:  "claude-desktop",
				Usage: "Register this server in the Claude Desktop config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "binary",
						Aliases: []string{"b"},
						Usage:   "path to the server binary (default: this executable)",
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Aliases: []string{"d"},
						Usage:   "data directory for the lite server",
						Sources: cli.EnvVars(dataDirEnv),
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y", "auto"},
						Usage:   "skip the confirmation prompt",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := SetupOptions{
						ServerType:  serverType,
						BinaryPath:  cmd.String("binary"),
						DataDir:     cmd.String("data-dir"),
						AutoConfirm: cmd.Bool("yes"),
					}
					return configureClaudeDesktop(opts, reader, out)
				},
			},
			{
				Name:  "status",
				Usage: "Show current setup status",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return showStatus(out)
				},
			},
		},
	}
}

func configureClaudeDesktop(opts SetupOptions, reader *bufio.Reader, out io.Writer) error {
	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	configPath, err := GetClaudeDesktopConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Claude Desktop Configuration")
	fmt.Fprintln(out, "============================")
	fmt.Fprintf(out, "Config file: %s\n", configPath)
	fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)
	}
	fmt.Fprintln(out)

	if !opts.AutoConfirm {
		fmt.Fprint(out, "Proceed with configuration? [Y/n]: ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Fprintln(out, "Configuration cancelled.")
			return nil
		}
	}

	if _, err := ConfigureClaudeDesktop(opts); err != nil {
		return fmt.Errorf("failed to configure Claude Desktop: %w", err)
	}

	fmt.Fprintln(out, "✓ Claude Desktop configured successfully!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Restart Claude Desktop to load the new configuration")
	fmt.Fprintln(out, "  2. Try: \"What LDL target applies to a 62-year-old diabetic woman with LDL 128?\"")
	return nil
}

func showStatus(out io.Writer) error {
	status, err := GetStatus()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "LDL Target MCP Server Status")
	fmt.Fprintln(out, "============================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Desktop:")
	fmt.Fprintf(out, "  Config path: %s\n", status.ClaudeDesktopPath)
	if status.ClaudeDesktopConfigured {
		fmt.Fprintln(out, "  Status: ✓ Configured")
		fmt.Fprintf(out, "  Binary: %s\n", status.ServerPath)
	} else {
		fmt.Fprintln(out, "  Status: ✗ Not configured")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Data Directory:")
	fmt.Fprintf(out, "  Path: %s\n", status.DataDir)
	if status.FeedbackDBPresent {
		fmt.Fprintln(out, "  Feedback DB: ✓ Present")
	} else {
		fmt.Fprintln(out, "  Feedback DB: - Not created yet")
	}

	if len(status.Issues) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Issues:")
		for _, issue := range status.Issues {
			fmt.Fprintf(out, "  ⚠ %s\n", issue)
		}
	}
	return nil
}
