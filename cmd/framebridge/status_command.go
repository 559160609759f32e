package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/ipc"
	"framebridge/internal/probe"
	"framebridge/internal/textutil"
)

type statusReport struct {
	Mode        string                  `json:"mode"`
	Bridge      *ipc.StatusResponse     `json:"bridge"`
	Tool        probe.ToolStatus        `json:"tool"`
	Interpreter probe.PythonEnvironment `json:"interpreter"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show frame tool, interpreter and bridge status",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			runCtx := commandCtx(cmd)

			report := statusReport{Mode: "local"}
			if _, ok := b.(remoteBackend); ok {
				report.Mode = "daemon"
			}
			if report.Bridge, err = b.Status(runCtx); err != nil {
				return err
			}
			if report.Tool, err = b.ProbeTool(runCtx); err != nil {
				return err
			}
			if report.Interpreter, err = b.ProbeInterpreter(runCtx); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd, report)
			return nil
		},
	}
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	toolLine := renderStatusLine("frame-extractor", statusError, report.Tool.Error, colorize)
	if report.Tool.Installed {
		toolLine = renderStatusLine("frame-extractor", statusOK, fmt.Sprintf("%s (%s)", report.Tool.Version, report.Tool.Path), colorize)
	}
	pyLine := renderStatusLine("Python", statusError, report.Interpreter.Error, colorize)
	if report.Interpreter.Available {
		pyLine = renderStatusLine("Python", statusOK, fmt.Sprintf("%s (%s)", report.Interpreter.Version, report.Interpreter.Path), colorize)
	}
	printSection(out, "Environment", []string{toolLine, pyLine}, colorize)

	st := report.Bridge
	mode := "in-process"
	if report.Mode == "daemon" {
		mode = fmt.Sprintf("daemon (pid %d, up %s)", st.PID, st.Uptime.Round(time.Second))
	}
	history := "disabled"
	if st.HistoryEnabled {
		history = st.HistoryPath
	}
	printSection(out, "Bridge", []string{
		renderStatusLine("Mode", statusInfo, mode, colorize),
		renderStatusLine("Install state", statusInfo, textutil.Label(string(st.InstallState)), colorize),
		renderStatusLine("Script running", statusInfo, yesNo(st.ScriptRunning), colorize),
		renderStatusLine("Active operations", statusInfo, fmt.Sprint(st.ActiveOps), colorize),
		renderStatusLine("History", statusInfo, history, colorize),
	}, colorize)

	checks := make([]string, 0, len(st.Checks))
	for _, check := range st.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusWarn
		}
		checks = append(checks, renderStatusLine(textutil.Label(check.Name), kind, check.Detail, colorize))
	}
	printSection(out, "Checks", checks, colorize)
}
