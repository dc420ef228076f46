// Command ingest is the Brawl Club roster CLI.
//
// Usage:
//
//	brawl-club-ingest sync --announce
//	brawl-club-ingest members
//	brawl-club-ingest trophies
//	brawl-club-ingest birthdays
//	brawl-club-ingest countries
//	brawl-club-ingest former --limit 20
//	brawl-club-ingest profile set '#P2' --real-name Ana --birthday 2001-03-14 --country PT
//	brawl-club-ingest migrate
//	brawl-club-ingest announce birthdays
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/brawl-club/internal/config"
	"github.com/albapepper/brawl-club/internal/db"
	"github.com/albapepper/brawl-club/internal/maintenance"
	"github.com/albapepper/brawl-club/internal/notify"
	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/provider/brawl"
	"github.com/albapepper/brawl-club/internal/roster"
	"github.com/albapepper/brawl-club/internal/store"
)

var (
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "brawl-club-ingest",
		Short:         "Brawl Club roster CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(syncCmd())
	root.AddCommand(membersCmd())
	root.AddCommand(trophiesCmd())
	root.AddCommand(birthdaysCmd())
	root.AddCommand(countriesCmd())
	root.AddCommand(formerCmd())
	root.AddCommand(profileCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(announceCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd() *cobra.Command {
	var announce bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every club, record departures and upsert members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				if env.cfg.BrawlAPIKey == "" {
					return fmt.Errorf("BRAWL_API_KEY is required")
				}
				var announcer maintenance.Announcer
				if announce {
					tg, err := newAnnouncer(env.cfg)
					if err != nil {
						return err
					}
					announcer = tg
				}

				start := time.Now()
				result, err := maintenance.NewSyncer(env.club, nil, announcer, logger).Run(ctx)
				for _, e := range result.Errors {
					logger.Warn("sync error", "error", e)
				}
				if err != nil {
					return err
				}
				logger.Info("Sync finished", "duration", time.Since(start).Round(time.Millisecond), "summary", result.Summary())
				printFormer(cmd.OutOrStdout(), result.Former)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&announce, "announce", false, "Post departures to Telegram")
	return cmd
}

// --------------------------------------------------------------------------
// read commands
// --------------------------------------------------------------------------

func membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List stored members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				members, err := env.club.Members(ctx)
				if err != nil {
					return err
				}
				printMembers(cmd.OutOrStdout(), members)
				return nil
			})
		},
	}
}

func trophiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trophies",
		Short: "Print the trophy total across stored members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				total, err := env.club.Trophies(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), total)
				return nil
			})
		},
	}
}

func birthdaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "birthdays",
		Short: "List members with a birthday this month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				members, err := env.club.MonthBirthdays(ctx)
				if err != nil {
					return err
				}
				printMembers(cmd.OutOrStdout(), members)
				return nil
			})
		},
	}
}

func countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Show member count per country",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				counts, err := env.club.Countries(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COUNTRY\tMEMBERS")
				for _, c := range counts {
					country := c.Country
					if country == "" {
						country = "-"
					}
					fmt.Fprintf(tw, "%s\t%d\n", country, c.Count)
				}
				return tw.Flush()
			})
		},
	}
}

func formerCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "former",
		Short: "List recent departures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				former, err := env.store.FormerMembers(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LEFT\tTAG\tNAME\tCLUB")
				for _, f := range former {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.LeftAt.Format(time.DateTime), f.Tag, f.Name, f.ClubName)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	return cmd
}

// --------------------------------------------------------------------------
// profile command
// --------------------------------------------------------------------------

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profile fields the game API does not provide",
	}
	cmd.AddCommand(profileSetCmd())
	return cmd
}

func profileSetCmd() *cobra.Command {
	var realName, birthday, country string
	cmd := &cobra.Command{
		Use:   "set <player-tag>",
		Short: "Set real name, birthday or country of a stored member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if realName == "" && birthday == "" && country == "" {
				return fmt.Errorf("at least one of --real-name, --birthday, --country is required")
			}
			bday, err := provider.ParseBirthday(birthday)
			if err != nil {
				return err
			}
			tag := "#" + provider.ParseClubTag(args[0])
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				if err := env.store.SetProfile(ctx, tag, realName, bday, country); err != nil {
					if errors.Is(err, store.ErrUnknownMember) {
						return fmt.Errorf("%s is not a stored member; run sync first", tag)
					}
					return err
				}
				logger.Info("Profile updated", "tag", tag)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&realName, "real-name", "", "Real name")
	cmd.Flags().StringVar(&birthday, "birthday", "", "Birthday (YYYY-MM-DD)")
	cmd.Flags().StringVar(&country, "country", "", "Country code")
	return cmd
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the roster schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), db.Schema())
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("Schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}

// --------------------------------------------------------------------------
// announce command
// --------------------------------------------------------------------------

func announceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Post roster news to Telegram",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "birthdays",
		Short: "Post this month's birthdays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClub(func(ctx context.Context, env *clubEnv) error {
				tg, err := newAnnouncer(env.cfg)
				if err != nil {
					return err
				}
				return maintenance.NewSyncer(env.club, nil, tg, logger).AnnounceBirthdays(ctx)
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

type clubEnv struct {
	cfg   *config.Config
	club  *roster.WholeClub
	store *store.Postgres
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(cfg.SlogLevel())
	return cfg, nil
}

// runWithClub handles config loading, DB connection, club wiring and
// context cancellation.
func runWithClub(fn func(ctx context.Context, env *clubEnv) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	st := store.NewPostgres(pool.Pool)
	client := brawl.NewClient(cfg.BrawlBaseURL, cfg.BrawlAPIKey, cfg.BrawlRequestsPerMinute, logger)
	club, err := roster.New(roster.Config{
		Main:    cfg.MainClubTag,
		Feeders: cfg.FeederClubTags,
		Policy:  cfg.FetchFailurePolicy,
	}, client, st, logger)
	if err != nil {
		return err
	}

	return fn(ctx, &clubEnv{cfg: cfg, club: club, store: st})
}

func newAnnouncer(cfg *config.Config) (*notify.Telegram, error) {
	if !cfg.TelegramEnabled() {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}
	return notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
}

func printMembers(w io.Writer, members []provider.Member) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tREAL NAME\tBIRTHDAY\tCOUNTRY\tTROPHIES\tCLUB")
	for _, m := range members {
		bday := "-"
		if m.Birthday != nil {
			bday = m.Birthday.Format(provider.BirthdayLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			m.Tag, m.Name, m.RealName, bday, orDash(m.Country), m.Trophies, m.ClubName)
	}
	tw.Flush()
}

func printFormer(w io.Writer, former []provider.Member) {
	for _, m := range former {
		fmt.Fprintf(w, "left: %s %s (%s)\n", m.Tag, m.Name, m.ClubName)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
