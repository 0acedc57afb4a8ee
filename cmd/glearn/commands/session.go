package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagSessionDuration time.Duration

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Exercise learning session tracking",
}

var sessionDemoCmd = &cobra.Command{
	Use:   "demo <subject-id>",
	Short: "Open a session, keep it alive for a while, then close it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		session, err := c.StartSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("session %s opened at %s\n",
			session.ID(), session.StartedAt().Local().Format(time.RFC1123))

		deadline := time.NewTimer(flagSessionDuration)
		ticker := time.NewTicker(10 * time.Second)
		defer deadline.Stop()
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-cmd.Context().Done():
				break loop
			case <-deadline.C:
				break loop
			case <-ticker.C:
				session.Touch()
			}
		}

		if err := session.Close(cmd.Context(), ""); err != nil {
			return err
		}
		fmt.Println("session closed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionDemoCmd)
	sessionDemoCmd.Flags().DurationVar(&flagSessionDuration, "duration", time.Minute,
		"How long to keep the session alive")
}
