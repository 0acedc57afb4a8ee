package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamelearn/analytics/pkg/client"
	"github.com/gamelearn/analytics/pkg/filters"
)

var (
	flagExportFormat string
	flagExportCourse string
	flagNoWait       bool
)

var exportCmd = &cobra.Command{
	Use:   "export <revenue|video|performance>",
	Short: "Run a report export",
	Long: `Submits an export job and, unless --no-wait is given, polls until the
job finishes and opens the download in your browser.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := filtersFromFlags()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		jobID, err := c.StartExport(cmd.Context(), client.ExportOptions{
			Type:       args[0],
			Format:     flagExportFormat,
			ResourceID: flagExportCourse,
			Filters:    filters.PlatformFilters(filters.Metabase, f, nil),
		})
		if err != nil {
			return err
		}
		fmt.Printf("export job submitted: %s\n", jobID)

		if flagNoWait {
			fmt.Printf("check progress with: glearn jobs list\n")
			return nil
		}

		job, err := c.WaitForExport(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		fmt.Printf("export completed in %s format, download opened\n", job.Format)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&flagExportFormat, "format", "csv", "Output format (csv, json, pdf, xlsx)")
	exportCmd.Flags().StringVar(&flagExportCourse, "course", "", "Scope the export to one course")
	exportCmd.Flags().BoolVar(&flagNoWait, "no-wait", false, "Submit without polling for completion")
	exportCmd.Flags().StringVar(&flagDateFrom, "from", "", "Start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&flagDateTo, "to", "", "End date (YYYY-MM-DD)")
	exportCmd.Flags().StringSliceVar(&flagCourseIDs, "courses", nil, "Course IDs to filter by")
	exportCmd.Flags().BoolVar(&flagArchived, "include-archived", false, "Include archived courses")
}
