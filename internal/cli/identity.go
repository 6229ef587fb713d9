package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tOgg1/reperage/internal/identity"
)

var (
	useCheck bool
	useClear bool
)

func init() {
	rootCmd.AddCommand(useCmd, whoamiCmd)

	useCmd.Flags().BoolVar(&useCheck, "check", false, "verify the report exists before storing it")
	useCmd.Flags().BoolVar(&useClear, "clear", false, "forget the active report")
}

var useCmd = &cobra.Command{
	Use:   "use <report-id>",
	Short: "Select the active report",
	Long: `Store the active report id. Running chat sessions pick the change up
and switch to the new report.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if useClear {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if useClear {
			if err := appIdentity.Clear(); err != nil {
				return err
			}
			return printIdentity(cmd.OutOrStdout(), appIdentity.Snapshot())
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid report id %q", args[0])
		}
		if useCheck {
			client, err := newClient()
			if err != nil {
				return err
			}
			if _, err := client.GetReport(cmd.Context(), id); err != nil {
				return fmt.Errorf("report %d: %w", id, err)
			}
		}
		if err := appIdentity.SetReport(id); err != nil {
			return err
		}
		logger := commandLogger("cli")
		logger.Info().Int64("report_id", id).Msg("active report changed")
		return printIdentity(cmd.OutOrStdout(), appIdentity.Snapshot())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printIdentity(cmd.OutOrStdout(), appIdentity.Snapshot())
	},
}

type identityView struct {
	ReportID    int64  `json:"report_id"`
	Perspective string `json:"perspective"`
	AuthorName  string `json:"author_name"`
	Language    string `json:"language"`
	StateFile   string `json:"state_file"`
}

func printIdentity(w io.Writer, id identity.Identity) error {
	view := identityView{
		ReportID:    id.ReportID,
		Perspective: string(appConfig.Perspective()),
		AuthorName:  authorName(),
		Language:    language(),
		StateFile:   appIdentity.Path(),
	}
	return writeOutput(w, view, func(w io.Writer) error {
		report := "(none)"
		if id.HasReport() {
			report = strconv.FormatInt(id.ReportID, 10)
		}
		_, err := fmt.Fprintf(w, "report:      %s\nperspective: %s\nauthor:      %s\nlanguage:    %s\n",
			report, view.Perspective, view.AuthorName, view.Language)
		return err
	})
}
