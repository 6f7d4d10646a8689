package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/errors"
	pmio "github.com/matzehuels/pathminer/pkg/io"
	"github.com/matzehuels/pathminer/pkg/search"
	"github.com/matzehuels/pathminer/pkg/search/contract"
)

// contractSummary describes a contracted network.
type contractSummary struct {
	Vertices          int
	ValidVertices     int
	ValidClusters     int
	ExceptionClusters int
	LargestValid      int
	Heaviest          []*contract.Cluster
}

// contractCommand creates the contract command.
func (c *CLI) contractCommand() *cobra.Command {
	var (
		combine string
		formula string
		top     int
	)

	cmd := &cobra.Command{
		Use:   "contract [network.json]",
		Short: "Summarise the contracted network",
		Long: `Contract every connected region of valid vertices into one cluster and
report the size of the resulting cluster graph together with the exception
vertices that join the most valid vertices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("combine") {
				f.Combine = combine
			}
			if cmd.Flags().Changed("formula") {
				f.Formula = formula
			}
			if err := f.Validate(); err != nil {
				return err
			}
			return runContract(cmd.Context(), args[0], f, top)
		},
	}

	cmd.Flags().StringVar(&combine, "combine", "", "combine rule over datasets: or, and, custom")
	cmd.Flags().StringVar(&formula, "formula", "", "boolean formula over dataset names (with --combine custom)")
	cmd.Flags().IntVar(&top, "top", 10, "number of exception clusters to list")

	return cmd
}

func runContract(ctx context.Context, input string, f *config.File, top int) error {
	logger := loggerFromContext(ctx)

	g, err := pmio.ImportJSON(input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "load network")
	}
	opts, err := f.Options()
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	cons, err := search.Prepare(g, opts.Config)
	if err != nil {
		return err
	}
	if ferr := cons.FormulaErr(); ferr != nil {
		printWarning("Formula rejected, no vertex is valid: %s", errors.UserMessage(ferr))
	}
	cg, err := contract.Contract(g)
	if err != nil {
		return err
	}
	prog.done("Contracted network", "clusters", cg.Len())

	s := summarize(cg, top)
	printSuccess("%d clusters", s.ValidClusters+s.ExceptionClusters)
	printKeyValue("Vertices", strconv.Itoa(s.Vertices))
	printKeyValue("Valid", fmt.Sprintf("%d vertices in %d clusters", s.ValidVertices, s.ValidClusters))
	printKeyValue("Exceptions", strconv.Itoa(s.ExceptionClusters))
	printKeyValue("Largest", strconv.Itoa(s.LargestValid))
	if len(s.Heaviest) > 0 {
		printNewline()
		printClusterTable(g.ID, s.Heaviest)
	}
	return nil
}

// summarize counts clusters and picks the top heaviest exception clusters.
func summarize(cg *contract.Graph, top int) contractSummary {
	s := contractSummary{Vertices: cg.Network().VertexCount()}
	s.ValidClusters, s.ExceptionClusters = cg.Counts()
	var exceptions []*contract.Cluster
	for _, cl := range cg.Clusters() {
		if cl.Valid {
			s.ValidVertices += len(cl.Members)
			s.LargestValid = max(s.LargestValid, len(cl.Members))
		} else {
			exceptions = append(exceptions, cl)
		}
	}
	slices.SortStableFunc(exceptions, func(a, b *contract.Cluster) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	s.Heaviest = exceptions[:min(max(top, 0), len(exceptions))]
	return s
}

func printClusterTable(id func(int) string, clusters []*contract.Cluster) {
	rows := make([][]string, len(clusters))
	for i, cl := range clusters {
		rows[i] = []string{id(cl.Members[0]), strconv.Itoa(cl.Weight), strconv.Itoa(len(cl.Neighbors))}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Exception", "Weight", "Adjacent clusters").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return listHeaderStyle
			case col == 1:
				return StyleNumber
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t.Render())
}
