package main

import (
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/catalogsource"
	"github.com/nl2sqlc/nl2sqlc/dialect"
)

type introspectOptions struct {
	Dialect  string `short:"d" long:"dialect" description:"Database dialect (POSTGRES,MYSQL,SQLITE,SQLSERVER)" value-name:"dialect" required:"true"`
	Host     string `short:"h" long:"host" description:"Host to connect to" value-name:"host_name" default:"127.0.0.1"`
	Port     int    `short:"P" long:"port" description:"Port used for the connection" value-name:"port_num"`
	User     string `short:"u" long:"user" description:"Database user name" value-name:"user_name"`
	Password string `short:"p" long:"password" description:"Database password, overridden by $NL2SQLC_DB_PWD" value-name:"password"`
	Prompt   bool   `long:"password-prompt" description:"Force a password prompt"`
	DbName   string `long:"db" description:"Database name" value-name:"db_name"`
	Path     string `long:"path" description:"SQLite file path, used instead of host/port/user/db" value-name:"sqlite_file"`
	Catalog  string `short:"c" long:"catalog" description:"Cross-check this catalog document's entities against the live schema instead of dumping it" value-name:"catalog_file.yml"`
	Help     bool   `long:"help" description:"Show this help"`
}

// runIntrospect is nl2sqlc's live-schema introspection mode: connect
// read-only to a database and print its table/column shape as a
// catalog document's `tables:` section, so a catalog author does not
// have to hand-type every column (SPEC_FULL.md DOMAIN STACK item 1).
// Grounded on cmd/mysqldef/mysqldef.go's password-prompt handling.
func runIntrospect(args []string) {
	var opts introspectOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "introspect [options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	d, ok := dialect.Parse(opts.Dialect)
	if !ok {
		log.Fatalf("unknown dialect %q", opts.Dialect)
	}

	password, ok := os.LookupEnv("NL2SQLC_DB_PWD")
	if !ok {
		password = opts.Password
	}
	if opts.Prompt {
		fmt.Print("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		password = string(pass)
		fmt.Println()
	}

	src, err := catalogsource.Open(catalogsource.Config{
		Dialect:  d,
		Host:     opts.Host,
		Port:     opts.Port,
		User:     opts.User,
		Password: password,
		DbName:   opts.DbName,
		Path:     opts.Path,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	if opts.Catalog != "" {
		cat, err := catalog.LoadFile(opts.Catalog)
		if err != nil {
			log.Fatal(err)
		}
		mismatches, err := src.Verify(cat)
		if err != nil {
			log.Fatal(err)
		}
		if len(mismatches) == 0 {
			fmt.Println("OK: every entity resolves against the live schema")
			return
		}
		for _, m := range mismatches {
			fmt.Fprintln(os.Stderr, m)
		}
		os.Exit(1)
	}

	tables, err := src.IntrospectTables()
	if err != nil {
		log.Fatal(err)
	}

	out, err := yaml.Marshal(catalog.Document{Tables: tables})
	if err != nil {
		log.Fatal(err)
	}
	os.Stdout.Write(out)
}
