// Package cli implements the reperage command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/reperage/internal/chatapi"
	"github.com/tOgg1/reperage/internal/config"
	"github.com/tOgg1/reperage/internal/identity"
	"github.com/tOgg1/reperage/internal/logging"
	"github.com/tOgg1/reperage/internal/models"
)

var (
	cfgFile       string
	reportFlag    int64
	fixerNameFlag string
	langFlag      string
	logLevel      string
	jsonOutput    bool

	appConfig   *config.Config
	appIdentity *identity.Manager
	logFile     io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "reperage",
	Short: "Chat between a location fixer and production",
	Long: `reperage connects a location fixer and the production team around a
repérage (a location scouting report). Run "reperage chat" to open the chat
panel for the active report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/reperage/config.yaml)")
	flags.Int64Var(&reportFlag, "report", 0, "report id to use (stored as the active report)")
	flags.StringVar(&fixerNameFlag, "fixer-name", "", "fixer display name (stored)")
	flags.StringVar(&langFlag, "lang", "", "UI language (FR, EN)")
	flags.StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func initApp(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, wantsTUI(cmd)); err != nil {
		return err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		logging.Logger.Debug().Str("config_file", used).Msg("loaded config file")
	}

	mgr := identity.New(cfg.Identity.StateFile)
	if err := mgr.Load(); err != nil {
		return err
	}
	if err := mgr.Apply(identity.Injected{
		ReportID:  reportFlag,
		Language:  langFlag,
		FixerName: fixerNameFlag,
	}); err != nil {
		return err
	}

	appConfig = cfg
	appIdentity = mgr
	return nil
}

// initLogging writes to the configured file when set. The full-screen chat
// panel owns the terminal, so without a file it logs nothing.
func initLogging(cfg *config.Config, tui bool) error {
	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
		Output:       os.Stderr,
	}
	if path := strings.TrimSpace(cfg.Logging.File); path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		logCfg.Output = f
	} else if tui {
		logCfg.Level = "disabled"
	}
	logging.Init(logCfg)
	return nil
}

func wantsTUI(cmd *cobra.Command) bool {
	return cmd == chatCmd && hasTTY()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newClient() (*chatapi.Client, error) {
	return chatapi.New(appConfig.API.BaseURL, chatapi.WithTimeout(appConfig.API.Timeout))
}

// activeReport returns the report the command should act on.
func activeReport() (int64, error) {
	id := appIdentity.ReportID()
	if id <= 0 {
		return 0, fmt.Errorf("%w: no active report (run `reperage use <id>` or pass --report)", chatapi.ErrValidation)
	}
	return id, nil
}

// authorName resolves the display name for outgoing messages: the stored fixer
// name, then the configured name, then a role default.
func authorName() string {
	perspective := appConfig.Perspective()
	if perspective == models.AuthorFixer {
		if name := strings.TrimSpace(appIdentity.Snapshot().FixerName); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(appConfig.Chat.AuthorName); name != "" {
		return name
	}
	if perspective == models.AuthorProduction {
		return "Production"
	}
	return "Fixer"
}

func language() string {
	if lang := appIdentity.Snapshot().Language; lang != "" {
		return lang
	}
	return appConfig.Chat.Language
}

func commandLogger(name string) zerolog.Logger {
	return logging.WithReport(logging.Component(name), appIdentity.ReportID())
}
