package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/tOgg1/reperage/internal/chat"
	"github.com/tOgg1/reperage/internal/chattui"
	"github.com/tOgg1/reperage/internal/identity"
	"github.com/tOgg1/reperage/internal/models"
)

var (
	chatClosed bool
	chatTheme  string
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatTailCmd, chatSendCmd, chatUnreadCmd)

	chatCmd.Flags().BoolVar(&chatClosed, "closed", false, "start with the panel closed (unread badge only)")
	chatCmd.Flags().StringVar(&chatTheme, "theme", "", "color theme (default, high-contrast)")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat panel for the active report",
	Long: `Open the chat panel. While open, the thread is fetched every
chat.foreground_interval and production messages are marked read. While
closed (ctrl+t), only the unread badge is refreshed every
chat.background_interval.

Without a terminal this behaves like "chat tail".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !hasTTY() {
			return runTail(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		}
		return runPanel(cmd.Context())
	},
}

var chatTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream the active thread to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTail(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Send a message to the active report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := activeReport()
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		msg, err := client.SendMessage(cmd.Context(), reportID, models.NewMessage{
			AuthorType: appConfig.Perspective(),
			AuthorName: authorName(),
			Content:    strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), msg, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "sent #%d\n", msg.ID)
			return err
		})
	},
}

var chatUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the unread count for the active report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := activeReport()
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		count, err := client.UnreadCount(cmd.Context(), reportID, appConfig.Perspective())
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), models.UnreadCount{Count: count}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, count)
			return err
		})
	},
}

func sessionConfig(open bool) chat.Config {
	return chat.Config{
		ReportID:           appIdentity.ReportID(),
		Open:               open,
		Perspective:        appConfig.Perspective(),
		AuthorName:         authorName(),
		ForegroundInterval: appConfig.Chat.ForegroundInterval,
		BackgroundInterval: appConfig.Chat.BackgroundInterval,
		Language:           chat.ParseLanguage(language()),
		Location:           appConfig.Location(),
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runSession runs the session made by build, an identity watcher that follows
// report switches, and front until front returns or ctx is done. done is
// closed as soon as front returns, so sinks selecting on it never outlive it.
func runSession(ctx context.Context, build func(done <-chan struct{}) *chat.Session, front func(context.Context, *chat.Session) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := commandLogger("cli")
	session := build(ctx.Done())

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(session.Run)
	p.Go(func(ctx context.Context) error {
		err := appIdentity.Watch(ctx, func(id identity.Identity) {
			if err := session.SwitchReport(id.ReportID); err != nil {
				logger.Debug().Err(err).Msg("report switch dropped")
			}
		})
		if err != nil {
			logger.Warn().Err(err).Msg("identity watch stopped")
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		defer cancel()
		return front(ctx, session)
	})
	return p.Wait()
}

func runPanel(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	client, err := newClient()
	if err != nil {
		return err
	}
	updates := make(chan chat.Update, 64)
	build := func(done <-chan struct{}) *chat.Session {
		return chat.NewSession(client, chat.ChannelSink(updates, done), sessionConfig(!chatClosed))
	}

	theme := chatTheme
	if theme == "" {
		theme = appConfig.TUI.Theme
	}
	uiCfg := chattui.Config{
		ReportID: appIdentity.ReportID(),
		Open:     !chatClosed,
		Theme:    theme,
		Language: chat.ParseLanguage(language()),
	}
	return runSession(ctx, build, func(ctx context.Context, session *chat.Session) error {
		return chattui.Run(ctx, session, updates, uiCfg)
	})
}

func runTail(parent context.Context, out, errOut io.Writer) error {
	ctx, stop := signalContext(parent)
	defer stop()

	client, err := newClient()
	if err != nil {
		return err
	}
	printer := newTailPrinter(out, errOut)
	build := func(<-chan struct{}) *chat.Session {
		return chat.NewSession(client, printer.handle, sessionConfig(true))
	}
	return runSession(ctx, build, func(ctx context.Context, _ *chat.Session) error {
		<-ctx.Done()
		return nil
	})
}
