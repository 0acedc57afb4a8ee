package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamelearn/analytics/pkg/client"
	"github.com/gamelearn/analytics/pkg/filters"
)

var (
	flagInsightID   string
	flagDashboardID string
	flagQuestionID  string
	flagDateFrom    string
	flagDateTo      string
	flagCourseIDs   []string
	flagArchived    bool
	flagRefresh     bool
)

var embedCmd = &cobra.Command{
	Use:   "embed <posthog|metabase>",
	Short: "Mint a signed dashboard embed URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := filters.Provider(args[0])
		if provider != filters.PostHog && provider != filters.Metabase {
			return fmt.Errorf("unknown provider %q (want posthog or metabase)", args[0])
		}

		f, err := filtersFromFlags()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		embed, err := c.MintEmbed(cmd.Context(), client.EmbedRequest{
			Provider:    provider,
			InsightID:   flagInsightID,
			DashboardID: flagDashboardID,
			QuestionID:  flagQuestionID,
			Filters:     filters.PlatformFilters(provider, f, nil),
			Refresh:     flagRefresh,
		})
		if err != nil {
			return err
		}

		fmt.Println(embed.URL)
		fmt.Printf("expires: %s\n", embed.ExpiresAt.Local().Format(time.RFC1123))
		if embed.Cached {
			fmt.Println("(served from cache)")
		}
		return nil
	},
}

// filtersFromFlags assembles canonical filter state from the shared
// date/course flags.
func filtersFromFlags() (filters.Filters, error) {
	f := filters.Default(time.Now())
	if flagDateFrom != "" {
		start, err := time.Parse("2006-01-02", flagDateFrom)
		if err != nil {
			return filters.Filters{}, fmt.Errorf("invalid --from date: %w", err)
		}
		f.DateRange.Start = start
		f.DateRange.Preset = "custom"
	}
	if flagDateTo != "" {
		end, err := time.Parse("2006-01-02", flagDateTo)
		if err != nil {
			return filters.Filters{}, fmt.Errorf("invalid --to date: %w", err)
		}
		f.DateRange.End = end
		f.DateRange.Preset = "custom"
	}
	f.CourseIDs = flagCourseIDs
	f.IncludeArchived = flagArchived
	return f, nil
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().StringVar(&flagInsightID, "insight", "", "PostHog insight ID")
	embedCmd.Flags().StringVar(&flagDashboardID, "dashboard", "", "Dashboard ID")
	embedCmd.Flags().StringVar(&flagQuestionID, "question", "", "Metabase question ID")
	embedCmd.Flags().StringVar(&flagDateFrom, "from", "", "Start date (YYYY-MM-DD)")
	embedCmd.Flags().StringVar(&flagDateTo, "to", "", "End date (YYYY-MM-DD)")
	embedCmd.Flags().StringSliceVar(&flagCourseIDs, "courses", nil, "Course IDs to filter by")
	embedCmd.Flags().BoolVar(&flagArchived, "include-archived", false, "Include archived courses")
	embedCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Bypass the embed cache")
}
