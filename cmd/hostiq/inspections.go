package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"hostiq/internal/app"
	"hostiq/internal/domain"
)

var (
	inspStatus     string
	inspProperty   string
	inspMinScore   float64
	inspMaxScore   float64
	inspQuery      string
	inspSort       string
	rejectReason   string
	createUnit     string
	createAssign   string
	uploadRoom     string
	uploadRoomType string
	watchInterval  time.Duration
)

func init() {
	rootCmd.AddCommand(inspectionsCmd)
	inspectionsCmd.AddCommand(inspListCmd, inspShowCmd, inspWatchCmd, inspRejectCmd,
		inspCreateCmd, inspUploadCmd, inspSubmitCmd, inspReportCmd)

	inspListCmd.Flags().StringVar(&inspStatus, "status", "", "only this status (e.g. COMPLETED)")
	inspListCmd.Flags().StringVar(&inspProperty, "property", "", "only this property id")
	inspListCmd.Flags().Float64Var(&inspMinScore, "min-score", 0, "minimum cleanliness score")
	inspListCmd.Flags().Float64Var(&inspMaxScore, "max-score", 0, "maximum cleanliness score")
	inspListCmd.Flags().StringVar(&inspQuery, "query", "", "match property, unit or cleaner name")
	inspListCmd.Flags().StringVar(&inspSort, "sort", app.SortNewest, "newest, oldest, score or score_asc")

	inspRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the inspection is rejected (required)")
	_ = inspRejectCmd.MarkFlagRequired("reason")

	inspCreateCmd.Flags().StringVar(&createUnit, "unit", "", "unit id (required)")
	inspCreateCmd.Flags().StringVar(&createAssign, "assignment", "", "assignment id")
	_ = inspCreateCmd.MarkFlagRequired("unit")

	inspUploadCmd.Flags().StringVar(&uploadRoom, "room", "", "room name, e.g. \"Master Bedroom\" (required)")
	inspUploadCmd.Flags().StringVar(&uploadRoomType, "type", "", "room type (default: inferred from the room name)")
	_ = inspUploadCmd.MarkFlagRequired("room")

	inspWatchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default POLL_INTERVAL_MS)")
}

var inspectionsCmd = &cobra.Command{
	Use:     "inspections",
	Aliases: []string{"insp"},
	Short:   "List, create and review inspections",
}

var inspListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inspections with client-side filters",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		items, err := rt.svc.CleanerInspections(cmd.Context())
		if err != nil {
			return err
		}
		f := app.InspectionFilter{Status: inspStatus, PropertyID: inspProperty, Query: inspQuery}
		if cmd.Flags().Changed("min-score") {
			f.MinScore = &inspMinScore
		}
		if cmd.Flags().Changed("max-score") {
			f.MaxScore = &inspMaxScore
		}
		items = app.FilterInspections(items, f)
		app.SortInspections(items, inspSort)

		if outputJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tPROPERTY\tUNIT\tCREATED")
		for _, in := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", in.ID, orDash(in.Status), formatScore(in.Score),
				orDash(in.PropertyName), orDash(in.UnitName), formatTime(in.CreatedAt))
		}
		return tw.Flush()
	}),
}

var inspShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one inspection with its per-room results",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		in, err := rt.svc.Inspection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), in)
		}
		return printInspection(cmd, in)
	}),
}

func printInspection(cmd *cobra.Command, in domain.Inspection) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintf(tw, "ID\t%s\n", in.ID)
	fmt.Fprintf(tw, "STATUS\t%s\n", orDash(in.Status))
	fmt.Fprintf(tw, "PROPERTY\t%s\n", orDash(in.PropertyName))
	fmt.Fprintf(tw, "UNIT\t%s\n", orDash(in.UnitName))
	fmt.Fprintf(tw, "CLEANER\t%s\n", orDash(in.CleanerName))
	fmt.Fprintf(tw, "SCORE\t%s\n", formatScore(in.Score))
	fmt.Fprintf(tw, "GRADE\t%s\n", orDash(in.Grade))
	fmt.Fprintf(tw, "SUMMARY\t%s\n", orDash(in.Summary))
	fmt.Fprintf(tw, "CREATED\t%s\n", formatTime(in.CreatedAt))
	fmt.Fprintf(tw, "COMPLETED\t%s\n", formatTime(in.CompletedAt))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(in.Rooms) == 0 {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout())
	tw = newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ROOM\tTYPE\tSCORE\tPHOTOS\tISSUES")
	for _, r := range in.Rooms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", orDash(r.Name), orDash(r.RoomType), formatScore(r.Score),
			r.PhotoCount, orDash(strings.Join(r.Issues, "; ")))
	}
	return tw.Flush()
}

var inspWatchCmd = &cobra.Command{
	Use:   "watch ID...",
	Short: "Poll inspections while they are PROCESSING",
	Long: `Poll each inspection every interval (3s by default) until its status
leaves PROCESSING, then print the final statuses. Ctrl-C stops polling.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		interval := watchInterval
		if interval <= 0 {
			interval = rt.cfg.PollInterval
		}
		w := app.NewWatcher(rt.svc, interval)

		var mu sync.Mutex
		last := map[string]string{}
		w.OnUpdate = func(in domain.Inspection) {
			mu.Lock()
			defer mu.Unlock()
			if last[in.ID] == in.Status {
				return
			}
			last[in.ID] = in.Status
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", in.ID, in.Status)
		}

		results := w.WatchMany(cmd.Context(), args, rt.cfg.WatchWorkers)
		if outputJSON {
			type row struct {
				ID     string   `json:"id"`
				Status string   `json:"status,omitempty"`
				Score  *float64 `json:"score,omitempty"`
				Error  string   `json:"error,omitempty"`
			}
			rows := make([]row, 0, len(results))
			for _, r := range results {
				rw := row{ID: r.ID, Status: r.Inspection.Status, Score: r.Inspection.Score}
				if r.Err != nil {
					rw.Error = r.Err.Error()
				}
				rows = append(rows, rw)
			}
			if err := printJSON(cmd.OutOrStdout(), rows); err != nil {
				return err
			}
			return app.Err(results)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tERROR")
		for _, r := range results {
			errText := ""
			if r.Err != nil {
				errText = r.Err.Error()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, orDash(r.Inspection.Status), formatScore(r.Inspection.Score), orDash(errText))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		return app.Err(results)
	}),
}

var inspRejectCmd = &cobra.Command{
	Use:   "reject ID",
	Short: "Reject a completed inspection",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		in, err := rt.svc.RejectInspection(cmd.Context(), args[0], rejectReason)
		if err != nil {
			return err
		}
		return printStatus(cmd, in)
	}),
}

var inspCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start an inspection for a unit",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		in, err := rt.svc.CreateInspection(cmd.Context(), createUnit, createAssign)
		if err != nil {
			return err
		}
		return printStatus(cmd, in)
	}),
}

var inspUploadCmd = &cobra.Command{
	Use:   "upload ID FILE...",
	Short: "Upload room photos to an inspection",
	Args:  cobra.MinimumNArgs(2),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		id := args[0]
		for _, path := range args[1:] {
			if err := uploadFile(cmd, rt, id, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s)\n", filepath.Base(path), uploadRoom)
		}
		return nil
	}),
}

func uploadFile(cmd *cobra.Command, rt *runtime, id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	return rt.svc.UploadPhoto(cmd.Context(), id, domain.PhotoUpload{
		RoomName: uploadRoom,
		RoomType: uploadRoomType,
		Filename: filepath.Base(path),
		Body:     f,
	})
}

var inspSubmitCmd = &cobra.Command{
	Use:   "submit ID",
	Short: "Submit an inspection for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		in, err := rt.svc.SubmitInspection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printStatus(cmd, in)
	}),
}

func printStatus(cmd *cobra.Command, in domain.Inspection) error {
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), in)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", in.ID, orDash(in.Status))
	return nil
}

var inspReportCmd = &cobra.Command{
	Use:   "report ID",
	Short: "Print the backend's report for a completed inspection (JSON)",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		rep, err := rt.svc.Report(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rep)
	}),
}
