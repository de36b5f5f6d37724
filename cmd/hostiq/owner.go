package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hostiq/internal/app"
	"hostiq/internal/domain"
)

var (
	assignmentsWhen string
	propertiesQuery string
	newPropName     string
	newPropAddress  string
	newPropUnits    int
)

func init() {
	rootCmd.AddCommand(assignmentsCmd, propertiesCmd, cleanersCmd, statsCmd, usageCmd, paymentsCmd, templatesCmd, roomsCmd)

	assignmentsCmd.Flags().StringVar(&assignmentsWhen, "when", app.WhenAll, "today, upcoming, past or all")
	propertiesCmd.Flags().StringVar(&propertiesQuery, "query", "", "match name or address")

	propertiesCmd.AddCommand(propertiesCreateCmd)
	propertiesCreateCmd.Flags().StringVar(&newPropName, "name", "", "property name (required)")
	propertiesCreateCmd.Flags().StringVar(&newPropAddress, "address", "", "street address")
	propertiesCreateCmd.Flags().IntVar(&newPropUnits, "units", 1, "number of units")
	_ = propertiesCreateCmd.MarkFlagRequired("name")
}

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "List the cleaner's assignments",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		switch assignmentsWhen {
		case app.WhenAll, app.WhenToday, app.WhenUpcoming, app.WhenPast:
		default:
			return fmt.Errorf("--when must be today, upcoming, past or all")
		}
		items, err := rt.svc.Assignments(cmd.Context())
		if err != nil {
			return err
		}
		items = app.FilterAssignments(items, assignmentsWhen, time.Now())
		app.SortAssignments(items)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tWHEN\tPROPERTY\tUNIT\tSTATUS\tNOTES")
		for _, a := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, formatTime(a.ScheduledFor), orDash(a.PropertyName),
				orDash(a.UnitName), orDash(a.Status), orDash(a.Notes))
		}
		return tw.Flush()
	}),
}

var propertiesCmd = &cobra.Command{
	Use:   "properties [ID]",
	Short: "List the owner's properties, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		var items []domain.Property
		if len(args) == 1 {
			p, err := rt.svc.Property(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			items = []domain.Property{p}
		} else {
			all, err := rt.svc.Properties(cmd.Context())
			if err != nil {
				return err
			}
			items = app.SearchProperties(all, propertiesQuery)
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tNAME\tUNITS\tADDRESS")
		for _, p := range items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, orDash(p.Name), p.UnitCount, orDash(p.Address))
		}
		return tw.Flush()
	}),
}

var propertiesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a property",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		p, err := rt.svc.CreateProperty(cmd.Context(), domain.NewProperty{Name: newPropName, Address: newPropAddress, Units: newPropUnits})
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%d units)\n", p.ID, p.Name, p.UnitCount)
		return nil
	}),
}

var cleanersCmd = &cobra.Command{
	Use:   "cleaners",
	Short: "List the owner's cleaners",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		items, err := rt.svc.Cleaners(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tINSPECTIONS\tAVG SCORE")
		for _, c := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, orDash(c.Name), orDash(c.Email), c.InspectionCount, formatScore(c.AverageScore))
		}
		return tw.Flush()
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show owner dashboard statistics",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		st, err := rt.svc.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), st)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintf(tw, "PROPERTIES\t%d\n", st.Properties)
		fmt.Fprintf(tw, "CLEANERS\t%d\n", st.Cleaners)
		fmt.Fprintf(tw, "INSPECTIONS\t%d\n", st.Inspections)
		fmt.Fprintf(tw, "PENDING REVIEW\t%d\n", st.PendingReview)
		fmt.Fprintf(tw, "AVG SCORE\t%s\n", formatScore(st.AverageScore))
		return tw.Flush()
	}),
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show subscription usage",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		u, err := rt.svc.Usage(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), u)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintf(tw, "PLAN\t%s\n", orDash(u.Plan))
		fmt.Fprintf(tw, "INSPECTIONS\t%d / %d\n", u.InspectionsUsed, u.InspectionsLimit)
		fmt.Fprintf(tw, "PERIOD END\t%s\n", formatTime(u.PeriodEnd))
		return tw.Flush()
	}),
}

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Show payment history and saved methods",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		history, err := rt.svc.Payments(cmd.Context())
		if err != nil {
			return err
		}
		methods, err := rt.svc.PaymentMethods(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"history": history, "methods": methods})
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tSTATUS")
		for _, p := range history {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, formatTime(p.CreatedAt), formatMoney(p.Amount, p.Currency), orDash(p.Status))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, m := range methods {
			fmt.Fprintf(cmd.OutOrStdout(), "card: %v ending %v\n", m["brand"], m["last4"])
		}
		return nil
	}),
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List room checklist templates",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		items, err := rt.svc.Templates(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tITEMS")
		for _, t := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.ID, orDash(t.Name), orDash(t.RoomType), len(t.Items))
		}
		return tw.Flush()
	}),
}

// roomsCmd works offline from the static suggestion table.
var roomsCmd = &cobra.Command{
	Use:   "rooms [NAME]",
	Short: "Show photo and checklist suggestions for a room",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), domain.RoomTypes())
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "TYPE\tNAME\tALIASES")
			for _, typ := range domain.RoomTypes() {
				s, _ := domain.RoomSuggestions(typ)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", typ, s.Display, strings.Join(s.Aliases, ", "))
			}
			return tw.Flush()
		}
		s, ok := domain.RoomSuggestions(args[0])
		if !ok {
			return fmt.Errorf("no suggestions for %q; try one of: %s", args[0], strings.Join(domain.RoomTypes(), ", "))
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), s)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n\nShots:\n", s.Display, s.Type)
		for _, shot := range s.Shots {
			fmt.Fprintf(out, "  - %s\n", shot)
		}
		fmt.Fprintln(out, "\nChecklist:")
		for _, item := range s.Checklist {
			fmt.Fprintf(out, "  [ ] %s\n", item)
		}
		return nil
	},
}
