// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-pipegen/pkg/automata"
	"github.com/consensys/go-pipegen/pkg/gen"
	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/util/source"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var generateCmd = &cobra.Command{
	Use:   "generate [flags] description_file(s)",
	Short: "generate scheduler automaton tables from a pipeline description.",
	Long: `Generate compiles one or more pipeline description files into the transition
	 tables of a deterministic finite-state automaton, emitted as a Go source file.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		options := automata.Options{
			NDFA:       GetFlag(cmd, "ndfa"),
			NoMinimize: GetFlag(cmd, "no-minimization"),
			Permissive: GetFlag(cmd, "permissive"),
			Time:       GetFlag(cmd, "time"),
			Describe:   GetFlag(cmd, "describe"),
			Split:      GetInt(cmd, "split"),
		}
		// Progress markers only make sense on an interactive terminal.
		if term.IsTerminal(int(os.Stderr.Fd())) {
			options.Progress = os.Stderr
		}
		//
		output := GetString(cmd, "output")
		pkg := GetString(cmd, "package")
		//
		decls := readDescriptionFiles(args)
		//
		tables, context, err := gen.Generate(decls, options)
		// Report accumulated diagnostics.
		for _, d := range context.Diagnostics() {
			fmt.Fprintln(os.Stderr, d)
		}
		//
		if err != nil {
			os.Exit(2)
		}
		//
		writeTablesFile(output, pkg, tables)
		//
		if context.Options().Describe {
			writeDescribeFile(output+".dfa", context)
		}
	},
}

// readDescriptionFiles parses the given description files into one flat
// sequence of declaration records.
func readDescriptionFiles(filenames []string) []pipeline.Decl {
	srcfiles, err := source.ReadFiles(filenames...)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	var decls []pipeline.Decl
	//
	for _, srcfile := range srcfiles {
		parsed, err := pipeline.ParseFile(&srcfile)
		//
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		//
		decls = append(decls, parsed...)
	}
	//
	return decls
}

func writeTablesFile(filename string, pkg string, tables *automata.Tables) {
	f, err := os.Create(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	defer f.Close()
	//
	if err := gen.EmitGo(f, pkg, tables); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func writeDescribeFile(filename string, context *automata.Context) {
	f, err := os.Create(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	defer f.Close()
	//
	context.Describe(f)
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Bool("ndfa", false, "preserve nondeterminism by emitting alternative arcs")
	generateCmd.Flags().Bool("no-minimization", false, "skip DFA minimization")
	generateCmd.Flags().BoolP("permissive", "w", false, "downgrade selected errors to warnings")
	generateCmd.Flags().Bool("time", false, "report phase timings")
	generateCmd.Flags().Bool("describe", false, "additionally emit a human-readable .dfa description file")
	generateCmd.Flags().Int("split", 0, "number of independent automata for heuristic distribution")
	generateCmd.Flags().StringP("output", "o", "tables.go", "specify output file.")
	generateCmd.Flags().StringP("package", "p", "tables", "package name of the emitted source file.")
}
