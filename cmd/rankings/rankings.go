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

// Package rankings prints a group's current standings.
package rankings

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rallyrank/rallyrank/cmd/commons"
	"github.com/rallyrank/rallyrank/pkg/rankings"
)

var (
	flagConfig string
	flagGroup  string
)

var Cmd = &cobra.Command{
	Use:   "rankings --group <group-id>",
	Short: "print the group standings ordered by rating",
	Args:  cobra.ExactArgs(0),
	Run:   run,
}

func init() {
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the YAML config file")
	Cmd.Flags().StringVarP(&flagGroup, "group", "g", "", "id of the group")
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

	svc := rankings.New(store, nil, log)
	entries, err := svc.Rankings(ctx, groupID)
	if err != nil {
		errFatalf("loading rankings: %v", err)
	}

	fmt.Printf("%-4s %-24s %8s %6s %6s %5s %7s %5s %8s\n",
		"#", "player", "rating", "last", "games", "wins", "losses", "ties", "win rate")
	for _, e := range entries {
		fmt.Printf("%-4d %-24s %8.0f %+6.0f %6d %5d %7d %5d %7.1f%%\n",
			e.Rank, e.DisplayName, e.Rating, e.LastDelta, e.GamesPlayed, e.Wins, e.Losses, e.Ties, e.WinRate*100)
	}
}

func errFatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
