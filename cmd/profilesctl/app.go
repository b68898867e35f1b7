package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/config"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/policy"
	"github.com/sakif/profiles-api/internal/repository/sqlstore"
	"github.com/sakif/profiles-api/internal/server"
	"github.com/sakif/profiles-api/internal/service"
)

// appEnv is everything the CLI touches outside its own process state.
type appEnv struct {
	lookup       func(string) (string, bool)
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	readPassword func() ([]byte, bool, error)
}

// session is an open store plus the account service built on it.
type session struct {
	db       *sqlstore.DB
	accounts *service.AccountService
}

func newApp(env appEnv) *cli.App {
	stdin := bufio.NewReader(env.stdin)

	// open loads the config, applies flag overrides and opens the store.
	open := func(c *cli.Context) (*session, error) {
		cfg, err := config.FromLookup(env.lookup)
		if err != nil {
			return nil, err
		}
		if c.IsSet("driver") {
			cfg.DBDriver = c.String("driver")
		}
		if c.IsSet("dsn") {
			cfg.DBDSN = c.String("dsn")
		}

		level := slog.LevelWarn
		if c.Bool("verbose") {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(env.stderr, &slog.HandlerOptions{Level: level}))

		db, err := server.OpenStore(c.Context, cfg, logger)
		if err != nil {
			return nil, err
		}

		passwords := auth.NewPasswordService(cfg.BcryptCost)
		return &session{
			db: db,
			// The CLI never logs anyone in, so no Authenticator is needed.
			accounts: service.NewAccountService(db, passwords, nil, policy.UpdateOwnProfile, logger),
		}, nil
	}

	// withSession opens the store around fn.
	withSession := func(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			s, err := open(c)
			if err != nil {
				return err
			}
			defer s.db.Close()
			return fn(c, s)
		}
	}

	setActive := func(active bool) cli.ActionFunc {
		return withSession(func(c *cli.Context, s *session) error {
			account, err := accountArg(c, s)
			if err != nil {
				return err
			}
			flags := account.Flags()
			flags.IsActive = active
			if _, err := s.accounts.SetFlags(c.Context, account.ID, flags); err != nil {
				return err
			}
			state := "deactivated"
			if active {
				state = "activated"
			}
			fmt.Fprintf(env.stdout, "%s %s\n", account, state)
			return nil
		})
	}

	return &cli.App{
		Name:      "profilesctl",
		Usage:     "administer profiles-api accounts",
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Reader:    env.stdin,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Usage: "database driver (sqlite|postgres), overrides DB_DRIVER"},
			&cli.StringFlag{Name: "dsn", Usage: "database DSN, overrides DB_DSN"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log migrations and SQL-level events"},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: withSession(func(c *cli.Context, s *session) error {
					fmt.Fprintf(env.stdout, "database is up to date (%s)\n", s.db.Driver())
					return nil
				}),
			},
			{
				Name:  "createsuperuser",
				Usage: "create an account with staff and superuser rights",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "password", Usage: "prompted for when omitted"},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					password := c.String("password")
					if password == "" {
						var err error
						if password, err = promptPassword(env, stdin); err != nil {
							return err
						}
					}

					account, err := s.accounts.CreateSuperuser(c.Context, service.RegisterInput{
						Name:     c.String("name"),
						Email:    c.String("email"),
						Password: password,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(env.stdout, "superuser %s created with id %d\n", account, account.ID)
					return nil
				}),
			},
			{
				Name:  "users",
				Usage: "list accounts",
				Flags: []cli.Flag{&cli.StringFlag{Name: "search", Usage: "name or email substring"}},
				Action: withSession(func(c *cli.Context, s *session) error {
					accounts, err := s.accounts.List(c.Context, c.String("search"))
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tACTIVE\tSTAFF\tSUPERUSER")
					for _, a := range accounts {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%t\t%t\n", a.ID, a.Email, a.Name, a.IsActive, a.IsStaff, a.IsSuperuser)
					}
					return tw.Flush()
				}),
			},
			{
				Name:      "activate",
				Usage:     "allow an account to log in again",
				ArgsUsage: "EMAIL",
				Action:    setActive(true),
			},
			{
				Name:      "deactivate",
				Usage:     "block an account from logging in and revoke its token",
				ArgsUsage: "EMAIL",
				Action:    setActive(false),
			},
			{
				Name:      "deleteuser",
				Usage:     "delete an account with all of its feed items",
				ArgsUsage: "EMAIL",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip confirmation"}},
				Action: withSession(func(c *cli.Context, s *session) error {
					account, err := accountArg(c, s)
					if err != nil {
						return err
					}
					if !c.Bool("yes") {
						ok, err := confirm(env, stdin, fmt.Sprintf("Delete %s and all their feed items?", account))
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintln(env.stdout, "aborted")
							return nil
						}
					}
					if err := s.accounts.Delete(c.Context, account.ID); err != nil {
						return err
					}
					fmt.Fprintf(env.stdout, "%s deleted\n", account)
					return nil
				}),
			},
		},
	}
}

// accountArg resolves the EMAIL argument of a command.
func accountArg(c *cli.Context, s *session) (*model.Account, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("%s: expected exactly one EMAIL argument", c.Command.Name)
	}
	return s.accounts.GetByEmail(c.Context, c.Args().First())
}

// promptPassword asks twice and requires both answers to match.
func promptPassword(env appEnv, stdin *bufio.Reader) (string, error) {
	first, err := readSecret(env, stdin, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := readSecret(env, stdin, "Password (again): ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	return first, nil
}

func readSecret(env appEnv, stdin *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(env.stderr, prompt)

	if env.readPassword != nil {
		pw, ok, err := env.readPassword()
		if ok {
			fmt.Fprintln(env.stderr)
			return string(pw), err
		}
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func confirm(env appEnv, stdin *bufio.Reader, question string) (bool, error) {
	fmt.Fprintf(env.stderr, "%s [y/N] ", question)
	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
