package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dfryer1193/dururack/archive/application"
	"github.com/dfryer1193/dururack/archive/persistence"
	"github.com/dfryer1193/dururack/internal/config"
	"github.com/dfryer1193/dururack/shared/db/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "dururack",
		Short: "Archive server for markdown posts",
		Long: `dururack stores posts grouped into archives, serves them over a JSON API,
and imports or exports archives as JSON files.

Run "dururack serve" to start the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.dbPath != "" {
				cfg.Database.Path = opts.dbPath
			}
			opts.cfg = cfg

			return setupLogger(cfg.Log)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newArchivesCmd(opts),
		newImportCmd(opts),
		newImportURLCmd(opts),
		newImportDirCmd(opts),
		newExportCmd(opts),
		newPostsCmd(opts),
		newTagsCmd(opts),
		newFeaturedCmd(opts),
	)

	return rootCmd
}

func setupLogger(cfg config.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

// store bundles the database and the services built on it.
type store struct {
	db       *sqlite.SQLiteDB
	archives *persistence.SQLiteArchiveRepository
	posts    *persistence.SQLitePostRepository
	service  *application.ArchiveService
}

func openStore(cfg *config.Config) (*store, error) {
	db := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.Database.Path))
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	archives := persistence.NewArchiveRepository(db.DB())
	posts := persistence.NewPostRepository(db.DB())
	images := persistence.NewImageRepository(db.DB(), cfg.Database.ImageDir)

	return &store{
		db:       db,
		archives: archives,
		posts:    posts,
		service:  application.NewArchiveService(archives, posts, images, application.NewMarkdownRenderer(), nil),
	}, nil
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
