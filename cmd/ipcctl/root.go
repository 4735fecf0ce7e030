package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ipc-visualizer/internal/client"
	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
)

type app struct {
	out     io.Writer
	server  string
	timeout time.Duration
	noColor bool
	client  *client.Client
}

// newRootCmd builds the command tree writing to out.
func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "ipcctl",
		Short: "Control a running IPC visualizer.",
		Long: `ipcctl drives the IPC visualizer server over its REST API. ` +
			`Every command acts on the shared simulation, so open browsers see the result immediately.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
			a.client = client.New(client.DefaultConfig(a.server))
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	server := os.Getenv("IPCCTL_SERVER")
	if server == "" {
		server = "http://127.0.0.1:8080"
	}
	root.PersistentFlags().StringVarP(&a.server, "server", "s", server, "server base URL (env IPCCTL_SERVER)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "per-command timeout")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.stateCmd(),
		a.lifecycleCmd("start", "Start the simulation", (*client.Client).Start),
		a.lifecycleCmd("stop", "Stop the simulation, keeping packets in place", (*client.Client).Stop),
		a.lifecycleCmd("toggle", "Start or stop the simulation", (*client.Client).Toggle),
		a.lifecycleCmd("reset", "Clear packets and the session log", (*client.Client).Reset),
		a.mechanismCmd(),
		a.sendCmd(),
		a.logCmd(),
	)
	return root
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen)
	dimColor   = color.New(color.Faint)
)

// printEntry writes one session log line, colored by level.
func (a *app) printEntry(e sim.Entry) {
	line := e.String()
	switch e.Level {
	case sim.LevelWarn:
		line = warnColor.Sprint(line)
	case sim.LevelError:
		line = errorColor.Sprint(line)
	}
	fmt.Fprintln(a.out, line)
}

func (a *app) printEntries(entries []sim.Entry) {
	for _, e := range entries {
		a.printEntry(e)
	}
}

// rejected prints a refused action the way the page logs it.
func (a *app) rejected(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	fmt.Fprintln(a.out, errorColor.Sprint(apiErr.Message))
	if apiErr.Attention {
		fmt.Fprintln(a.out, dimColor.Sprint("hint: run `ipcctl start` first"))
	}
	return fmt.Errorf("rejected: %s", apiErr.Code)
}
