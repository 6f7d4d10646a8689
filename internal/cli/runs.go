package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/store"
)

// runsCommand creates the run history command.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and inspect stored runs",
		Long: `List and inspect runs recorded with "solve --save" or by the HTTP API.

Runs are kept in MongoDB; set store.mongo_uri in the config file.`,
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())

	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				runs, err := st.List(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					printInfo("No runs recorded")
					return nil
				}
				printRunTable(runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one run and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateRunID(args[0]); err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				run, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				printRun(run)
				return nil
			})
		},
	}
}

func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateRunID(args[0]); err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				if err := st.Delete(ctx, args[0]); err != nil {
					return err
				}
				printSuccess("Deleted run %s", args[0])
				return nil
			})
		},
	}
}

// withStore opens the configured store, runs fn and closes the store.
func (c *CLI) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	f, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, f)
	if err != nil {
		return err
	}
	defer st.Close(context.WithoutCancel(ctx))
	return fn(ctx, st)
}

// openStore connects to the MongoDB store named by the config file.
func openStore(ctx context.Context, f *config.File) (store.Store, error) {
	if f.Store.MongoURI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no run store configured (set store.mongo_uri)")
	}
	return store.NewMongoStore(ctx, f.Store.MongoURI, f.Store.Database)
}

func printRunTable(runs []*store.Run) {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			runLabel(r),
			string(r.Status),
			strconv.Itoa(r.Best()),
			strconv.Itoa(len(r.Results)),
			r.CreatedAt.Local().Format("Jan 2 15:04"),
			r.Duration().Round(time.Millisecond).String(),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Strategy", "Status", "Best", "Results", "Created", "Took").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return listHeaderStyle
			case col == 2:
				return statusStyle(runs[row].Status)
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t.Render())
}

func printRun(r *store.Run) {
	printKeyValue("ID", StyleHighlight.Render(r.ID))
	printKeyValue("Strategy", runLabel(r))
	printKeyValue("Status", statusStyle(r.Status).Render(string(r.Status)))
	if r.Error != "" {
		printKeyValue("Error", r.Error)
	}
	printKeyValue("Network", r.NetworkHash[:min(12, len(r.NetworkHash))])
	printKeyValue("K / L", fmt.Sprintf("%d / %d", r.Config.K, r.Config.DefaultBudget))
	printKeyValue("Created", r.CreatedAt.Local().Format(time.RFC3339))
	printKeyValue("Took", r.Duration().Round(time.Millisecond).String())
	if r.Cached {
		printKeyValue("Cached", "yes")
	}
	if len(r.Results) > 0 {
		printNewline()
		printResultTable(r.Results, resultTableRows)
	}
}

func runLabel(r *store.Run) string {
	if r.Algorithm != "" {
		return r.Strategy + "/" + r.Algorithm
	}
	return r.Strategy
}

func statusStyle(s store.Status) lipgloss.Style {
	switch s {
	case store.StatusDone:
		return StyleSuccess
	case store.StatusCancelled:
		return StyleWarning
	case store.StatusFailed:
		return StyleError
	default:
		return StyleHighlight
	}
}
