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

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rallyrank/rallyrank/cmd/preview"
	"github.com/rallyrank/rallyrank/cmd/rankings"
	"github.com/rallyrank/rallyrank/cmd/recalculate"
	"github.com/rallyrank/rallyrank/version"
)

var commands = []*cobra.Command{
	recalculate.Cmd,
	rankings.Cmd,
	preview.Cmd,
}

var rootCmd = &cobra.Command{
	Use:   "rallyrank subcommand",
	Short: "rallyrank is the ops toolbox for the doubles matchmaking and rating core",
}

func init() {
	rootCmd.AddCommand(commands...)
	rootCmd.Version = version.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
