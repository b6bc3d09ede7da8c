package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/seed"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

// operator is the seeded admin account every command acts as.
var operator = service.Actor{UserID: uuid.MustParse(middleware.SuperUserID), IsAdmin: true}

type env struct {
	db            *sqlx.DB
	tournaments   *service.TournamentService
	matches       *service.MatchService
	registrations *service.RegistrationService
	participants  *store.ParticipantStore
}

func open(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if path := c.String("db"); path != "" {
		cfg.Database.Path = path
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	rt := service.NewRuntime(database, cfg.Policy(),
		service.WithLogger(logger),
		service.WithRetry(cfg.Engine.RetryAttempts, 20*time.Millisecond),
	)
	tournaments := store.NewTournamentStore(database)
	participants := store.NewParticipantStore(database)
	authz := service.RosterAuthorizer{}
	return &env{
		db:            database,
		tournaments:   service.NewTournamentService(rt, tournaments, participants, authz),
		matches:       service.NewMatchService(rt, tournaments, authz),
		registrations: service.NewRegistrationService(rt, tournaments, participants, authz),
		participants:  participants,
	}, nil
}

// withEnv opens the database for one command and closes it afterwards.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := open(c)
		if err != nil {
			return err
		}
		defer e.db.Close()
		return fn(c, e)
	}
}

func tournamentID(c *cli.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String("tournament"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tournament id %q: %w", c.String("tournament"), err)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var tournamentFlag = &cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id", Required: true}
var matchFlag = &cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "match id, e.g. upper_r1_m2", Required: true}

func main() {
	app := &cli.App{
		Name:  "bracketctl",
		Usage: "operate tournaments from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file", EnvVars: []string{"CONFIG_PATH"}},
			&cli.StringFlag{Name: "db", Usage: "sqlite database path, overrides the config"},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Action: withEnv(func(c *cli.Context, e *env) error {
					fmt.Println("Migrations applied")
					return nil
				}),
			},
			{
				Name:  "seed",
				Usage: "create a tournament with generated teams registered",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Value: "Seeded Cup"},
					&cli.StringFlag{Name: "type", Value: string(bracket.SingleElimination), Usage: "single_elimination, double_elimination or group_playoff"},
					&cli.StringFlag{Name: "format", Value: "5v5"},
					&cli.IntFlag{Name: "teams", Value: 8},
					&cli.IntFlag{Name: "maps", Value: 7, Usage: "size of the generated map pool, 0 for none"},
					&cli.IntFlag{Name: "best-of", Value: 1},
					&cli.Int64Flag{Name: "seed", Usage: "generator seed, random when unset"},
				},
				Action: withEnv(seedTournament),
			},
			{
				Name:  "generate",
				Usage: "generate the bracket from the registered teams",
				Flags: []cli.Flag{tournamentFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					matches, err := e.tournaments.GenerateBracket(c.Context, operator, id)
					if err != nil {
						return err
					}
					return printMatches(matches)
				}),
			},
			{
				Name:  "playoff",
				Usage: "seed the playoff from finished group standings",
				Flags: []cli.Flag{tournamentFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					matches, err := e.tournaments.GeneratePlayoff(c.Context, operator, id)
					if err != nil {
						return err
					}
					return printMatches(matches)
				}),
			},
			{
				Name:  "show",
				Usage: "print the tournament with its matches as JSON",
				Flags: []cli.Flag{tournamentFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					data, err := e.tournaments.GetTournamentData(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(data)
				}),
			},
			{
				Name:  "standings",
				Usage: "print group standings",
				Flags: []cli.Flag{tournamentFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					groups, err := e.tournaments.Standings(c.Context, id)
					if err != nil {
						return err
					}
					return printStandings(groups)
				}),
			},
			{
				Name:  "result",
				Usage: "submit a series score",
				Flags: []cli.Flag{
					tournamentFlag, matchFlag,
					&cli.IntFlag{Name: "a", Usage: "maps won by team A"},
					&cli.IntFlag{Name: "b", Usage: "maps won by team B"},
					&cli.StringFlag{Name: "forfeit-winner", Usage: "side id awarded the match by forfeit"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					var sub bracket.Submission
					if w := c.String("forfeit-winner"); w != "" {
						sub = bracket.Submission{WinnerSideID: w, Forfeit: true}
					} else {
						a, b := c.Int("a"), c.Int("b")
						sub = bracket.Submission{TeamAScore: &a, TeamBScore: &b}
					}
					m, err := e.matches.SubmitResult(c.Context, operator, id, c.String("match"), sub)
					if err != nil {
						return err
					}
					return printJSON(m)
				}),
			},
			{
				Name:  "reset",
				Usage: "reset a completed match and everything built on it",
				Flags: []cli.Flag{tournamentFlag, matchFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					id, err := tournamentID(c)
					if err != nil {
						return err
					}
					m, err := e.matches.ResetResult(c.Context, operator, id, c.String("match"))
					if err != nil {
						return err
					}
					return printJSON(m)
				}),
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedTournament(c *cli.Context, e *env) error {
	var gen *seed.DataGenerator
	if c.IsSet("seed") {
		gen = seed.NewDataGenerator(c.Int64("seed"))
	} else {
		gen = seed.NewDataGenerator()
	}

	in := service.TournamentInput{
		Title:       c.String("title"),
		TeamFormat:  c.String("format"),
		BracketType: bracket.BracketType(c.String("type")),
		BestOf:      c.Int("best-of"),
	}
	if n := c.Int("maps"); n > 0 {
		in.MapPool = gen.GenerateMapPool(n)
	}
	t, err := e.tournaments.CreateTournament(c.Context, operator, in)
	if err != nil {
		return err
	}

	teams := gen.GenerateTeams(c.Int("teams"), in.TeamFormat, operator.UserID)
	for i := range teams {
		tx, err := e.db.BeginTxx(c.Context, nil)
		if err != nil {
			return err
		}
		if err := e.participants.CreateTeamTx(c.Context, tx, &teams[i]); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		if err := e.registrations.Register(c.Context, operator, t.ID, teams[i].ID); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %s (%s) with %d teams, generator seed %d\n", t.Title, t.ID, len(teams), gen.Seed())
	return nil
}

func printMatches(matches []*bracket.Match) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tSTATUS\tTEAM A\tTEAM B")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Status, sideName(m.TeamA), sideName(m.TeamB))
	}
	return w.Flush()
}

func printStandings(groups []bracket.GroupStandings) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(w, "Group %s\n", g.Group)
		fmt.Fprintln(w, "#\tTEAM\tW\tL\tDIFF")
		for i, s := range g.Standings {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%+d\n", i+1, s.Side.Name, s.Wins, s.Losses, s.ScoreFor-s.ScoreAgainst)
		}
	}
	return w.Flush()
}

func sideName(s *bracket.Side) string {
	if s == nil {
		return "TBD"
	}
	return s.Name
}
