package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	notelifecycle "github.com/aretw0/notefold/pkg/adapters/lifecycle"
	"github.com/aretw0/notefold/pkg/core"
)

var (
	watchJSON bool
	watchKind string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the store as they happen",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := openService(ctx)
		events, err := svc.Watch(ctx)
		if err != nil {
			fatal("Failed to start watcher", err)
		}

		var kinds []core.EntryKind
		if watchKind != "" {
			kinds = append(kinds, core.EntryKind(watchKind))
		}
		src := notelifecycle.NewSource(events, kinds...)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start event source", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		for e := range src.Events() {
			event, ok := e.(core.Event)
			if !ok {
				continue
			}
			if watchJSON {
				_ = encoder.Encode(event)
				continue
			}
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
				time.Unix(event.Timestamp, 0).Format(time.RFC3339), event.Type, event.Kind, event.ID, event.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output one JSON object per event")
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "Only print events of this kind (note or folder)")
}
