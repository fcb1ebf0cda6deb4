package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/index"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
)

const dateFormat = "2006-01-02"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare a folder as a task vault",
	Long: `Create the vault scaffolding in the target folder: a commented
config.yaml with every tunable, and the local index database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := vaultFlag
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("creating vault: %w", err)
		}
		if err := config.WriteSkeleton(root); err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}

		db, err := index.Open(cfg.ResolveIndexPath(root))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.InitSchema(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("Initialized task vault in %s\n", root)
		return nil
	},
}

var (
	addDue      string
	addDueTime  string
	addDefer    string
	addPriority string
	addArea     string
	addProject  string
	addTags     string
	addBody     string
	addFlagged  bool
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}

		fm := task.Frontmatter{
			Title:   strings.Join(args, " "),
			Status:  task.StatusTodo,
			DueTime: addDueTime,
			Area:    addArea,
			Project: addProject,
			Flagged: addFlagged,
		}
		if addDue != "" {
			due, err := time.Parse(dateFormat, addDue)
			if err != nil {
				return fmt.Errorf("invalid --due %q: want YYYY-MM-DD", addDue)
			}
			fm.Due = due
		}
		if addDefer != "" {
			deferred, err := time.Parse(dateFormat, addDefer)
			if err != nil {
				return fmt.Errorf("invalid --defer %q: want YYYY-MM-DD", addDefer)
			}
			fm.Defer = deferred
		}
		if addPriority != "" {
			p := task.Priority(addPriority)
			if !p.IsValid() {
				return fmt.Errorf("invalid --priority %q", addPriority)
			}
			fm.Priority = p
		}
		if addTags != "" {
			for _, tag := range strings.Split(addTags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					fm.Tags = append(fm.Tags, tag)
				}
			}
		}

		doc := &task.Document{Frontmatter: fm, Body: addBody}
		rec, err := v.store.Create(doc, "")
		if err != nil {
			return err
		}
		fmt.Println(rec.Filename)
		return nil
	},
}

var (
	listStatus  string
	listArea    string
	listProject string
	listTag     string
	listOverdue bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `Run a sync pass over the vault, rebuild the index, and print the
matching tasks. Filters combine with the status filter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}

		db, rows, err := queryTasks(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer db.Close()

		for _, r := range rows {
			if listArea != "" && r.Area != listArea {
				continue
			}
			if listProject != "" && r.Project != listProject {
				continue
			}
			if listTag != "" && !hasTag(r.Tags, listTag) {
				continue
			}
			printRow(r)
		}
		return nil
	},
}

// queryTasks refreshes the index from a full pass and runs the selected
// query against it.
func queryTasks(ctx context.Context, v *vault) (*index.DB, []index.Row, error) {
	eng := v.newEngine(nil)
	_, _, state, err := eng.Run(ctx, engine.NewState())
	if err != nil {
		return nil, nil, err
	}

	db, err := index.Open(v.config.ResolveIndexPath(v.root))
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := db.Rebuild(ctx, state.Records()); err != nil {
		db.Close()
		return nil, nil, err
	}

	var rows []index.Row
	switch {
	case listOverdue:
		rows, err = db.DueBefore(ctx, time.Now())
	default:
		status := task.Status(listStatus)
		if !status.IsValid() {
			db.Close()
			return nil, nil, fmt.Errorf("invalid --status %q", listStatus)
		}
		rows, err = db.ByStatus(ctx, status)
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, rows, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func printRow(r index.Row) {
	marks := ""
	if r.Flagged {
		marks = " ⚑"
	}
	due := ""
	if r.Due != "" {
		due = "  due " + r.Due
		if r.DueTime != "" {
			due += " " + r.DueTime
		}
	}
	fmt.Printf("%-12s %s%s%s  (%s)\n", r.Status, r.Title, marks, due, r.Filename)
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}
		rec, err := v.store.Load(v.resolveTaskPath(args[0]))
		if err != nil {
			return err
		}

		fm := rec.Doc.Frontmatter
		fmt.Printf("Title:    %s\n", fm.Title)
		fmt.Printf("Status:   %s\n", fm.Status)
		if fm.Priority != "" && fm.Priority != task.PriorityNone {
			fmt.Printf("Priority: %s\n", fm.Priority)
		}
		if !fm.Due.IsZero() {
			line := fm.Due.Format(dateFormat)
			if fm.DueTime != "" {
				line += " " + fm.DueTime
			}
			fmt.Printf("Due:      %s\n", line)
		}
		if !fm.Defer.IsZero() {
			fmt.Printf("Defer:    %s\n", fm.Defer.Format(dateFormat))
		}
		if !fm.Scheduled.IsZero() {
			fmt.Printf("Scheduled: %s\n", fm.Scheduled.Format(dateFormat))
		}
		if fm.Area != "" {
			fmt.Printf("Area:     %s\n", fm.Area)
		}
		if fm.Project != "" {
			fmt.Printf("Project:  %s\n", fm.Project)
		}
		if len(fm.Tags) > 0 {
			fmt.Printf("Tags:     %s\n", strings.Join(fm.Tags, ", "))
		}
		if fm.Recurrence != "" {
			fmt.Printf("Repeats:  %s\n", fm.Recurrence)
		}
		if body := strings.TrimSpace(rec.Doc.Body); body != "" {
			fmt.Printf("\n%s\n", body)
		}
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <file>",
	Short: "Complete a task",
	Long: `Mark a task done. For a recurring task the completed file keeps its
history (recurrence stripped, status done) and a fresh instance is created
carrying the recurrence rule; its dates are left unset for the external
recurrence evaluator to fill in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}
		path := v.resolveTaskPath(args[0])

		completed, spawned, err := v.store.CompleteRepeating(path, time.Now(), blankOccurrence)
		if err != nil {
			return err
		}
		fmt.Printf("Completed %s\n", completed.Filename)
		if spawned != nil {
			fmt.Printf("Next instance: %s\n", spawned.Filename)
		}
		return nil
	},
}

// blankOccurrence spawns the next recurring instance with no dates set;
// recurrence date math belongs to an external evaluator.
func blankOccurrence(task.Frontmatter, time.Time) (store.Occurrence, error) {
	return store.Occurrence{}, nil
}

func init() {
	addCmd.Flags().StringVar(&addDue, "due", "", "due date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addDueTime, "due-time", "", "due time (HH:MM)")
	addCmd.Flags().StringVar(&addDefer, "defer", "", "hide until date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addPriority, "priority", "", "priority (low, medium, high)")
	addCmd.Flags().StringVar(&addArea, "area", "", "area of responsibility")
	addCmd.Flags().StringVar(&addProject, "project", "", "project name")
	addCmd.Flags().StringVar(&addTags, "tags", "", "comma-separated tags")
	addCmd.Flags().StringVar(&addBody, "body", "", "task notes")
	addCmd.Flags().BoolVar(&addFlagged, "flagged", false, "flag the task")

	listCmd.Flags().StringVar(&listStatus, "status", string(task.StatusTodo), "filter by status")
	listCmd.Flags().StringVar(&listArea, "area", "", "filter by area")
	listCmd.Flags().StringVar(&listProject, "project", "", "filter by project")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	listCmd.Flags().BoolVar(&listOverdue, "overdue", false, "only overdue tasks")

	rootCmd.AddCommand(initCmd, addCmd, listCmd, showCmd, doneCmd)
}
