package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamelearn/analytics/internal/models"
	"github.com/gamelearn/analytics/pkg/client"
)

var paymentCmd = &cobra.Command{
	Use:   "payment [payment-id]",
	Short: "Confirm a payment's status",
	Long: `Polls the payment status endpoint until the payment settles or the
attempt budget runs out. With no argument, resumes the locally recorded
pending payment and clears the record once the payment succeeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var paymentID string
		fromRecord := false
		if len(args) == 1 {
			paymentID = args[0]
		} else {
			pending, err := client.LoadPendingPayment()
			if err != nil {
				return err
			}
			if pending == nil {
				return fmt.Errorf("no payment ID given and no pending payment recorded")
			}
			paymentID = pending.PaymentID
			fromRecord = true
			fmt.Printf("resuming pending payment %s (course %s)\n", pending.PaymentID, pending.CourseID)
		}

		data, err := c.ConfirmPayment(cmd.Context(), paymentID)
		if err != nil {
			return err
		}

		switch data.Status {
		case models.PaymentSucceeded:
			fmt.Printf("payment succeeded: %s %s\n", data.Amount.StringFixed(2), data.Currency)
			if fromRecord {
				if err := client.ClearPendingPayment(); err != nil {
					return err
				}
			}
		case models.PaymentFailed, models.PaymentCancelled:
			fmt.Printf("payment %s\n", data.Status)
		default:
			// Non-terminal after the attempt budget; the webhook may still
			// settle it later.
			fmt.Printf("payment still %s; check again later\n", data.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paymentCmd)
}
