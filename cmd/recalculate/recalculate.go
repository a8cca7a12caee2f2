/*

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package recalculate rebuilds a group's ratings from its full event
// history.
package recalculate

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rallyrank/rallyrank/cmd/commons"
	"github.com/rallyrank/rallyrank/pkg/replay"
	"github.com/rallyrank/rallyrank/pkg/syncutil"
)

var (
	flagConfig string
	flagGroup  string
)

var Cmd = &cobra.Command{
	Use:   "recalculate --group <group-id>",
	Short: "reset and recompute every rating, stat and audit record of a group from its completed events",
	Args:  cobra.ExactArgs(0),
	Run:   run,
}

func init() {
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the YAML config file")
	Cmd.Flags().StringVarP(&flagGroup, "group", "g", "", "id of the group to recalculate")
	_ = Cmd.MarkFlagRequired("group")
}

func run(_ *cobra.Command, _ []string) {
	groupID, err := uuid.Parse(flagGroup)
	if err != nil {
		errFatalf("invalid group id %q: %v", flagGroup, err)
	}

	cfg, err := commons.LoadConfig(flagConfig)
	if err != nil {
		errFatalf("loading config: %v", err)
	}
	log, err := commons.NewLogger(cfg.LogLevel)
	if err != nil {
		errFatalf("building logger: %v", err)
	}

	ctx := context.Background()
	store, err := commons.ConnectStore(ctx, cfg)
	if err != nil {
		errFatalf("connecting store: %v", err)
	}
	defer store.Close()

	orch := replay.New(store, syncutil.NewGroupLocker(), log)
	summary, err := orch.Recalculate(ctx, groupID)
	if err != nil {
		errFatalf("recalculating group: %v", err)
	}

	fmt.Printf("events processed: %d\nplayers updated:  %d\n", summary.EventsProcessed, summary.PlayersUpdated)
	for i, standing := range summary.TopRatings {
		fmt.Printf("%d. %-24s %.0f\n", i+1, standing.DisplayName, standing.Rating)
	}
}

func errFatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
