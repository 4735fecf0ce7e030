package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ipc-visualizer/internal/client"
	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/types"
)

func (a *app) stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the simulation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := a.client.State(ctx)
			if err != nil {
				return err
			}
			st := resp.State

			phase := dimColor.Sprint(st.Phase)
			if st.Running() {
				phase = okColor.Sprint(st.Phase)
			}
			fmt.Fprintf(a.out, "phase:      %s\n", phase)
			fmt.Fprintf(a.out, "mechanism:  %s\n", st.Mechanism.DisplayName())
			for _, p := range st.Processes {
				fmt.Fprintf(a.out, "process %d:  %s at (%.0f, %.0f)\n", p.ID, p.Name, p.Position.X, p.Position.Y)
			}
			fmt.Fprintf(a.out, "selection:  %d -> %d\n", st.Selection.Source, st.Selection.Target)
			fmt.Fprintf(a.out, "in flight:  %d\n", st.InFlight())
			for _, p := range st.Packets {
				fmt.Fprintf(a.out, "  %s %q %d -> %d %3.0f%%\n", p.ID, p.Payload, p.Source, p.Dest, p.Progress*100)
			}
			return nil
		},
	}
}

type lifecycleFunc func(*client.Client, context.Context) (types.ActionResponse, error)

func (a *app) lifecycleCmd(use, short string, fn lifecycleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := fn(a.client, ctx)
			if err != nil {
				return a.rejected(err)
			}
			a.printEntries(resp.Entries)
			if len(resp.Entries) == 0 {
				fmt.Fprintf(a.out, "already %s\n", resp.Phase)
			}
			return nil
		},
	}
}

func (a *app) mechanismCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mechanism [tag]",
		Short: "List mechanisms, or switch to one (resets the simulation)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if len(args) == 0 {
				resp, err := a.client.Mechanisms(ctx)
				if err != nil {
					return err
				}
				for _, m := range resp.Mechanisms {
					marker := " "
					if m.Tag == resp.Current {
						marker = okColor.Sprint("*")
					}
					fmt.Fprintf(a.out, "%s %-13s %s\n", marker, m.Tag, m.Name)
				}
				return nil
			}

			resp, err := a.client.SetMechanism(ctx, args[0])
			if err != nil {
				return a.rejected(err)
			}
			a.printEntries(resp.Entries)
			return nil
		},
	}
}

func (a *app) sendCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "send [--from N] [--to N] <text>",
		Short: "Send a message between processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			text := strings.Join(args, " ")
			resp, err := a.client.Send(ctx, text, sim.ProcessID(from), sim.ProcessID(to))
			if err != nil {
				return a.rejected(err)
			}
			a.printEntries(resp.Entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "source process id")
	cmd.Flags().IntVar(&to, "to", 2, "target process id")
	return cmd
}

func (a *app) logCmd() *cobra.Command {
	var (
		follow   bool
		since    uint64
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return a.client.Follow(ctx, since, interval, a.printEntry)
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			entries, err := a.client.Log(ctx, since)
			if err != nil {
				return err
			}
			a.printEntries(entries)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new entries until interrupted")
	cmd.Flags().Uint64Var(&since, "since", 0, "only entries after this sequence number")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "poll interval with --follow")
	return cmd
}
