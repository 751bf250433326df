package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"nodedeck/internal/identity"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newCallCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "call <channel> [params-json]",
		Short: "Invoke an IPC channel",
		Long: `Invoke an IPC channel with optional JSON params and print its data.

Examples:
  deckctl call fs:loadProjects
  deckctl call pm2:describe '{"id":"myapp-1a2b3c4d5e"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("params must be valid JSON")
				}
				params = args[1]
			}
			data, err := c.invoke(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newChannelsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the channels the server serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _, err := c.get(cmd.Context(), "/api/ipc")
			if err != nil {
				return err
			}
			for _, ch := range env.Get("data").Array() {
				fmt.Fprintln(cmd.OutOrStdout(), ch.String())
			}
			return nil
		},
	}
}

func newProjectsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List registered projects and their PM2 status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.invoke(cmd.Context(), "fs:loadProjects", nil)
			if err != nil {
				return err
			}
			if w := data.Get("warning").String(); w != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tMATCHED\tPATH")
			data.Get("projects").ForEach(func(_, p gjson.Result) bool {
				rule := p.Get("process.matchedBy").String()
				if rule == "" {
					rule = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					p.Get("id").String(), p.Get("name").String(), p.Get("status").String(), rule, p.Get("path").String())
				return true
			})
			return tw.Flush()
		},
	}
}

func newLifecycleCmd(c *client, use, channel, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.invoke(cmd.Context(), channel, map[string]string{"id": args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", data.Get("project.name").String(), data.Get("project.status").String())
			if w := data.Get("warning").String(); w != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			return nil
		},
	}
}

func newLogsCmd(c *client) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print recent PM2 log lines of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.invoke(cmd.Context(), "pm2:logs", map[string]any{"id": args[0], "lines": lines})
			if err != nil {
				return err
			}
			for _, line := range data.Array() {
				fmt.Fprintln(cmd.OutOrStdout(), line.String())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "number of lines (default: the logLines setting)")
	return cmd
}

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <name> <path>",
		Short: "Print the stable id for a project name and path",
		Long: `Print the stable id nodedeck derives for a project. Computed locally; no
server is contacted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), identity.Generate(args[0], args[1]))
			return nil
		},
	}
}

func newHealthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check nodedeck server readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, status, err := c.get(cmd.Context(), "/ready")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", env.Get("status").String())
			if pm2 := env.Get("pm2").String(); pm2 != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "pm2: %s\n", pm2)
			}
			if status != 200 {
				return fmt.Errorf("server not ready (status %d)", status)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, data gjson.Result) error {
	if !data.Exists() {
		fmt.Fprintln(w, "null")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(data.Raw), "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
