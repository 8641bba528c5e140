package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/outreach"
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Track contact attempts against leads",
}

// withTracker opens the store and hands a Tracker to fn, closing on return.
func withTracker(cmd *cobra.Command, fn func(*outreach.Tracker) error) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(outreach.New(st))
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

var (
	outreachMethod string
	outreachNotes  string
)

var outreachLogCmd = &cobra.Command{
	Use:   "log <lead-id>",
	Short: "Record a contact attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseID(args[0], "lead")
		if err != nil {
			return err
		}
		return withTracker(cmd, func(tr *outreach.Tracker) error {
			id, err := tr.LogContact(cmd.Context(), leadID, model.ContactMethod(outreachMethod), outreachNotes)
			if err != nil {
				return err
			}
			cmd.Printf("Logged outreach #%d for lead %d via %s\n", id, leadID, outreachMethod)
			return nil
		})
	},
}

var outreachStatus string

var outreachRespondCmd = &cobra.Command{
	Use:   "respond <outreach-id>",
	Short: "Record a response to an earlier contact attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "outreach")
		if err != nil {
			return err
		}
		return withTracker(cmd, func(tr *outreach.Tracker) error {
			if err := tr.UpdateResponse(cmd.Context(), id, outreachStatus, outreachNotes); err != nil {
				return err
			}
			cmd.Printf("Outreach #%d marked %s\n", id, outreachStatus)
			return nil
		})
	},
}

var outreachHistoryCmd = &cobra.Command{
	Use:   "history <lead-id>",
	Short: "Show a lead's contact history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseID(args[0], "lead")
		if err != nil {
			return err
		}
		return withTracker(cmd, func(tr *outreach.Tracker) error {
			events, err := tr.History(cmd.Context(), leadID)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				cmd.Println("No outreach recorded for this lead.")
				return nil
			}
			for _, ev := range events {
				marker := " "
				if ev.ResponseReceived {
					marker = "*"
				}
				cmd.Printf("%s #%d %s %s %s %s\n", marker, ev.ID,
					ev.ContactDate.Format("2006-01-02"), ev.Method, ev.Status, ev.Notes)
			}
			return nil
		})
	},
}

var followupDays int

var outreachFollowupsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List leads due a follow-up",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd, func(tr *outreach.Tracker) error {
			due, err := tr.PendingFollowups(cmd.Context(), followupDays)
			if err != nil {
				return err
			}
			if len(due) == 0 {
				cmd.Println("Nothing due for follow-up.")
				return nil
			}
			for _, f := range due {
				if f.NeverContacted {
					cmd.Printf("Lead %d %s: never contacted (discovered %d days ago)\n",
						f.Lead.ID, f.Lead.Name, f.DaysSince)
					continue
				}
				cmd.Printf("Lead %d %s: last contacted %d days ago via %s\n",
					f.Lead.ID, f.Lead.Name, f.DaysSince, f.LastContact.Method)
			}
			return nil
		})
	},
}

var (
	messageKind string
	messageDemo string
)

var outreachMessageCmd = &cobra.Command{
	Use:   "message <lead-id>",
	Short: "Draft an outreach message for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseID(args[0], "lead")
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := st.GetLead(cmd.Context(), leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return eris.Errorf("lead %d not found", leadID)
		}

		msg, err := outreach.New(st).Message(*lead, outreach.MessageKind(messageKind), messageDemo)
		if err != nil {
			return err
		}
		cmd.Println(msg)
		return nil
	},
}

func init() {
	outreachLogCmd.Flags().StringVarP(&outreachMethod, "method", "m", "email", "contact method (email, phone, whatsapp, in_person)")
	outreachLogCmd.Flags().StringVarP(&outreachNotes, "notes", "n", "", "notes about the attempt")
	outreachRespondCmd.Flags().StringVarP(&outreachStatus, "status", "s", "interested", "response status")
	outreachRespondCmd.Flags().StringVarP(&outreachNotes, "notes", "n", "", "notes about the response")
	outreachFollowupsCmd.Flags().IntVar(&followupDays, "days", 3, "minimum days since last contact")
	outreachMessageCmd.Flags().StringVarP(&messageKind, "kind", "k", "initial", "message kind (initial, followup, demo)")
	outreachMessageCmd.Flags().StringVar(&messageDemo, "demo-url", "", "demo URL for the demo message")

	outreachCmd.AddCommand(outreachLogCmd, outreachRespondCmd, outreachHistoryCmd,
		outreachFollowupsCmd, outreachMessageCmd)
	rootCmd.AddCommand(outreachCmd)
}
