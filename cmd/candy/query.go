// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/candy/pkg/id"
)

// runQuery executes the 'query' CLI command: invoke one registered core
// query keyed by a resource path and print the result as JSON.
//
// Examples:
//
//	candy query index.file_ast foo.candy
//	candy query driver.analyze foo/bar.candy --project path/to/project
//	candy query --list
func runQuery(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	project := fs.String("project", ".", "Project root directory")
	list := fs.Bool("list", false, "List registered query names and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: candy query [options] <name> <resource>

Description:
  Invoke a single query of the compiler core against one resource of the
  current project and print its value and diagnostics as JSON. Mostly a
  debugging tool; 'candy check' is the end-user surface.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	session, _, ok := newProjectSession([]string{*project}, globals)
	if !ok {
		return 1
	}

	if *list {
		names := session.Engine().Names()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return 0
	}

	if len(fs.Args()) < 2 {
		fs.Usage()
		return 1
	}
	name := fs.Args()[0]
	res := id.NewResourceID(id.ThisPackage, fs.Args()[1])

	value, err := session.Query(name, res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		return 1
	}

	var diagnostics []string
	for _, d := range session.Context().DiagnosticsFor(name, res).All() {
		diagnostics = append(diagnostics, d.String())
	}

	payload := struct {
		Query       string      `json:"query"`
		Resource    string      `json:"resource"`
		Value       interface{} `json:"value"`
		Diagnostics []string    `json:"diagnostics,omitempty"`
	}{Query: name, Resource: res.Path, Value: value, Diagnostics: diagnostics}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		// Not every query value is JSON-encodable; fall back to %v.
		fmt.Printf("%v\n", value)
	}
	return 0
}
