package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/relay"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run one turn against a graph file and print the stream",
		Long: `Chat runs a single turn. Reasoning goes to stderr, the reply to stdout.
With --graph the file is read as the current graph and overwritten with the
resulting graph.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := newLogger(cfg)

			mesh, err := newMesh(cfg, logger)
			if err != nil {
				return err
			}

			data, err := readGraph(flagGraph)
			if err != nil {
				return err
			}

			history := []core.Message{{Role: core.RoleUser, Content: strings.Join(args, " ")}}

			events, err := mesh.Stream(cmd.Context(), history, data)
			if err != nil {
				return err
			}

			final, err := printStream(cmd.OutOrStdout(), cmd.ErrOrStderr(), events)
			if err != nil {
				return err
			}

			if flagGraph == "" || final == nil {
				return nil
			}
			return writeGraph(flagGraph, *final)
		},
	}

	cmd.Flags().StringVar(&flagGraph, "graph", "", "Graph JSON file to read and update")

	return cmd
}

// printStream renders events and returns the final snapshot.
func printStream(stdout, stderr io.Writer, events <-chan relay.Event) (*graph.Data, error) {
	var final *graph.Data

	for ev := range events {
		switch ev.Type {
		case relay.EventThinking:
			fmt.Fprint(stderr, ev.Content)
		case relay.EventToken:
			fmt.Fprint(stdout, ev.Content)
		case relay.EventGraphUpdate:
			if ev.IsFinalSnapshot() {
				final = ev.Graph
				continue
			}
			fmt.Fprintf(stderr, "\n[%s %s]\n", ev.Action.Action, ev.Action.ID)
		case relay.EventDone:
			fmt.Fprintln(stdout)
		}
	}

	if final == nil {
		return nil, fmt.Errorf("stream ended before the final graph")
	}
	return final, nil
}

func readGraph(path string) (graph.Data, error) {
	var data graph.Data
	if path == "" {
		return data, nil
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read graph: %w", err)
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return data, fmt.Errorf("parse graph %s: %w", path, err)
	}
	return data, nil
}

func writeGraph(path string, data graph.Data) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
