package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"satpam/internal/auth"
	"satpam/internal/config"
	"satpam/internal/personnel"
	"satpam/internal/roster"
	"satpam/internal/store"
)

var (
	migrateFunc = store.Migrate // mockable
	openDBFunc  = func(ctx context.Context, cfg config.App) (*sql.DB, error) {
		db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{MaxOpen: 2})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db.Client, nil
	}

	errHelp = errors.New("help provided")
)

type personCreator interface {
	Create(ctx context.Context, p personnel.Person) (personnel.Person, error)
}

type commandLine struct {
	cfg    config.App
	out    io.Writer
	db     *sql.DB
	people func(db *sql.DB) personCreator
}

func newCommandLine(cfg config.App, out io.Writer) *commandLine {
	return &commandLine{
		cfg: cfg,
		out: out,
		people: func(db *sql.DB) personCreator {
			return personnel.NewRepository(db)
		},
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                       - create the database tables")
	fmt.Fprintln(cli.out, "  addperson -first NAME [-last NAME] -role ROLE - provision a person and print a token")
	fmt.Fprintln(cli.out, "  token -sub PERSON_ID -role ROLE [-ttl 12h]    - sign an access token")
	fmt.Fprintln(cli.out, "  template [-o roster_template.xlsx]            - write an empty roster workbook")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "migrate":
		db, err := cli.database(ctx)
		if err != nil {
			return err
		}
		if err := migrateFunc(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cli.out, "schema is up to date")
		return nil

	case "addperson":
		fs := cli.flagSet("addperson")
		first := fs.String("first", "", "first name as it appears on rosters")
		last := fs.String("last", "", "last name")
		role := fs.String("role", string(personnel.RoleGuard), "admin, supervisor or guard")
		id := fs.String("id", "", "identity-provider account id (uuid); generated when empty")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		r, err := personnel.ParseRole(*role)
		if *first == "" || err != nil {
			fs.Usage()
			return errHelp
		}
		db, err := cli.database(ctx)
		if err != nil {
			return err
		}
		p, err := cli.people(db).Create(ctx, personnel.Person{ID: *id, FirstName: *first, LastName: *last, Role: r})
		if err != nil {
			return fmt.Errorf("create person: %w", err)
		}
		fmt.Fprintf(cli.out, "created %s (%s) as %s\n", p.FullName(), p.ID, p.Role)
		return cli.printToken(p.ID, string(p.Role), cli.cfg.AccessTTL)

	case "token":
		fs := cli.flagSet("token")
		sub := fs.String("sub", "", "person id")
		role := fs.String("role", "", "admin, supervisor or guard")
		ttl := fs.Duration("ttl", cli.cfg.AccessTTL, "token lifetime")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if _, err := personnel.ParseRole(*role); *sub == "" || err != nil {
			fs.Usage()
			return errHelp
		}
		return cli.printToken(*sub, *role, *ttl)

	case "template":
		fs := cli.flagSet("template")
		out := fs.String("o", "roster_template.xlsx", "output path")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		data, err := roster.Template()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "wrote %s\n", *out)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) database(ctx context.Context) (*sql.DB, error) {
	if cli.db != nil {
		return cli.db, nil
	}
	db, err := openDBFunc(ctx, cli.cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	cli.db = db
	return db, nil
}

func (cli *commandLine) printToken(sub, role string, ttl time.Duration) error {
	token, exp, err := auth.Issue(sub, role, cli.cfg.JWTIssuer, cli.cfg.JWTSigningKey, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)
	return nil
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
		cli.db = nil
	}
}
