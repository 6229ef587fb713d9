package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/reperage/internal/models"
)

var (
	reportCreateTitle string
	reportCreateUse   bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportCreateCmd, reportShowCmd)

	reportCreateCmd.Flags().StringVar(&reportCreateTitle, "title", "", "report title (required)")
	reportCreateCmd.Flags().BoolVar(&reportCreateUse, "use", true, "make the new report active")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage reports",
}

var reportCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(reportCreateTitle)
		if title == "" {
			return fmt.Errorf("--title is required")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.CreateReport(cmd.Context(), title, authorName())
		if err != nil {
			return err
		}
		if reportCreateUse {
			if err := appIdentity.SetReport(report.ID); err != nil {
				return err
			}
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Show a report (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if len(args) == 1 {
			parsed, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || parsed <= 0 {
				return fmt.Errorf("invalid report id %q", args[0])
			}
			id = parsed
		} else {
			active, err := activeReport()
			if err != nil {
				return err
			}
			id = active
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.GetReport(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

func printReport(w io.Writer, report models.Report) error {
	return writeOutput(w, report, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "#%d %s (fixer: %s, created %s)\n",
			report.ID, report.Title, report.FixerName, report.CreatedAt.In(appConfig.Location()).Format("2006-01-02 15:04"))
		return err
	})
}
