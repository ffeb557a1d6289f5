package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/util"
)

type lintOptions struct {
	Catalog string `short:"c" long:"catalog" description:"Semantic catalog document (YAML) to validate" value-name:"catalog_file" required:"true"`
	Verbose bool   `short:"v" long:"verbose" description:"List every declared entity name"`
	Help    bool   `long:"help" description:"Show this help"`
}

// runLint is nl2sqlc's catalog-only validation mode: load a catalog
// document and report its CatalogError, if any, without compiling
// anything. Grounded on the teacher's config-only validation path
// (database.ParseGeneratorConfig) — SPEC_FULL.md's supplemented
// "nl2sqlc lint" feature.
func runLint(args []string) {
	var opts lintOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "lint [options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	cat, err := catalog.LoadFile(opts.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", opts.Catalog, err)
		os.Exit(1)
	}

	names := cat.EntityNames()
	fmt.Printf("%s: OK (%d entities)\n", opts.Catalog, len(names))
	if opts.Verbose {
		quoted := util.TransformSlice(names, func(n string) string { return `"` + n + `"` })
		fmt.Println(strings.Join(quoted, ", "))
	}
}
