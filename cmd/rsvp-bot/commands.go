package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rsvp-bot/internal/sheets"
)

func newCampaignCmd() *cobra.Command {
	var tenantID string
	var forced bool

	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Send one campaign batch for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			wa, err := a.connect()
			if err != nil {
				return err
			}
			defer wa.Disconnect()

			sent, err := a.runner(wa).Run(cmd.Context(), tenantID, forced)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Sent %d messages for %s\n", sent, tenantID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().BoolVar(&forced, "forced", false, "ignore date windows and the active flag")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newFlushFollowUpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-followups",
		Short: "Send every follow-up that is due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			wa, err := a.connect()
			if err != nil {
				return err
			}
			defer wa.Disconnect()

			queue, err := a.followUpQueue(wa)
			if err != nil {
				return err
			}
			sent, err := queue.Flush(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✅ Sent %d follow-ups, %d still pending\n", sent, len(queue.Pending()))
			return nil
		},
	}
}

func newGuestsCmd() *cobra.Command {
	var tenantID, status string

	cmd := &cobra.Command{
		Use:   "guests",
		Short: "List a tenant's guests, optionally by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			gateway, err := a.gateway(tenantID)
			if err != nil {
				return err
			}

			guests := gateway.GetGuests(cmd.Context())
			label := "All Guests"
			if status != "" {
				guests = sheets.FilterByStatus(guests, status)
				label = fmt.Sprintf("Guests with status '%s'", status)
			}
			if len(guests) == 0 {
				fmt.Println("\nNo guests found.")
				return nil
			}

			fmt.Printf("\n📋 %s (%d total):\n", label, len(guests))
			fmt.Println(strings.Repeat("-", 60))
			for _, guest := range guests {
				fmt.Printf("Name: %s\n", guest.Name)
				fmt.Printf("Phone: %s\n", guest.Phone)
				fmt.Printf("Status: %s\n", guest.Status)
				if guest.PartyCount > 0 {
					fmt.Printf("Party: %d\n", guest.PartyCount)
				}
				if guest.LastContacted != "" {
					fmt.Printf("Last contacted: %s\n", guest.LastContacted)
				}
				fmt.Println(strings.Repeat("-", 60))
			}

			stats := sheets.Summarize(gateway.GetGuests(cmd.Context()))
			fmt.Printf("Confirmed %d (%d attending), declined %d, maybe %d, pending %d\n",
				stats.Confirmed, stats.Attending, stats.Declined, stats.Maybe, stats.Pending)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&status, "status", "", "Pending, Confirmed, Declined or Maybe")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newDirectoryCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Show which tenant each guest phone routes to",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			mappings := a.directory.All()
			if tenantID != "" {
				mappings = a.directory.ForTenant(tenantID)
			}
			if len(mappings) == 0 {
				fmt.Println("\nNo mappings found.")
				return nil
			}

			fmt.Printf("\n📇 Guest directory (%d entries):\n", len(mappings))
			for _, m := range mappings {
				routed, _ := a.resolver.ResolveTenant(m.Phone)
				fmt.Printf("%-16s %-12s %-20s mapped %s, routes to %s\n",
					m.Phone, m.TenantID, m.GuestName, m.MappedAt.Format("2006-01-02 15:04"), routed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "only show this tenant's guests")
	return cmd
}
