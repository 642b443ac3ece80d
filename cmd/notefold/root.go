package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/notefold"
	"github.com/aretw0/notefold/pkg/core"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notefold",
	Short: "A note store that uses a directory tree as its database",
	Long: `notefold keeps Markdown notes in a plain folder tree.
Folders are directories with a JSON sidecar, notes are Markdown files with
YAML front matter, and every read rescans the tree so manual edits show up.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./notefold.yaml)")
	flags.StringP("root", "r", "", "store root (default: nearest parent holding the Uncategorized bucket, else the working directory)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.Bool("versioning", false, "Commit every change to git")
	flags.Bool("read-only", false, "Reject every write")
	flags.String("extension", "", "Note file extension (default .md)")
	flags.String("sidecar", "", "Folder sidecar file name (default .folder.json)")
	flags.String("uncategorized", "", "Bucket directory for notes without a folder")
	flags.StringSlice("system-dirs", nil, "Directory patterns never treated as folders")
	flags.String("legacy-notes", "", "Legacy flat notes directory (default <root>/../notes)")
	flags.String("legacy-folders", "", "Legacy folder records directory (default <root>/../folders)")
	flags.Bool("no-migrate", false, "Skip the legacy migration on open")

	for _, name := range []string{
		"root", "verbose", "versioning", "read-only", "extension", "sidecar",
		"uncategorized", "system-dirs", "legacy-notes", "legacy-folders", "no-migrate",
	} {
		_ = viper.BindPFlag(configKey(name), flags.Lookup(name))
	}
}

// configKey maps a flag name to its config file and env key.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func initConfig() {
	// Variables already set take precedence over .env values.
	_ = godotenv.Load()

	viper.SetEnvPrefix("NOTEFOLD")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("notefold")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fatal("Failed to read config", err)
	}
}

// storeRoot resolves the store root from config, falling back to a search
// upwards from the working directory.
func storeRoot() (string, error) {
	if root := viper.GetString("root"); root != "" {
		return root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := notefold.FindRoot(wd, viper.GetString("uncategorized")); err == nil {
		return root, nil
	}
	return wd, nil
}

// storeOptions maps the resolved configuration onto library options.
func storeOptions() []notefold.Option {
	opts := []notefold.Option{
		notefold.WithLogger(slog.Default()),
		notefold.WithVersioning(viper.GetBool("versioning")),
		notefold.WithAutoInit(viper.GetBool("versioning")),
		notefold.WithReadOnly(viper.GetBool("read_only")),
		notefold.WithMigration(!viper.GetBool("no_migrate")),
		notefold.WithLegacyDirs(viper.GetString("legacy_notes"), viper.GetString("legacy_folders")),
	}
	if ext := viper.GetString("extension"); ext != "" {
		opts = append(opts, notefold.WithExtension(ext))
	}
	if name := viper.GetString("sidecar"); name != "" {
		opts = append(opts, notefold.WithSidecarName(name))
	}
	if name := viper.GetString("uncategorized"); name != "" {
		opts = append(opts, notefold.WithUncategorized(name))
	}
	if dirs := viper.GetStringSlice("system_dirs"); len(dirs) > 0 {
		opts = append(opts, notefold.WithSystemDirs(dirs...))
	}
	return opts
}

func openService(ctx context.Context) *core.Service {
	root, err := storeRoot()
	if err != nil {
		fatal("Failed to resolve store root", err)
	}
	svc, err := notefold.Open(ctx, root, storeOptions()...)
	if err != nil {
		fatal("Failed to open store", err)
	}
	return svc
}
