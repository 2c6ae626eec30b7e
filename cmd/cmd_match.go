package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shop-dedup/internal/calculator"
	"shop-dedup/internal/models"
	"shop-dedup/internal/pipeline"
)

type ioOptions struct {
	input  string
	output string
}

var (
	matchIO = ioOptions{output: "SuspectMasterData.xlsx"}
	auditIO = ioOptions{output: "suspicious_secured_duplicates.xlsx"}
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Recommend a code or flag each unsecured shop",
	Long: `Matches every shop without a prospect code against the nearest secured shop
and the nearest other unsecured shop, and writes one row per unsecured shop
with the recommendation:

  Assign Code P                 no similarly named secured shop nearby
  Flag as Suspicious            nearest secured shop has a similar name
  Flag as Unsecured Duplicate   another unsecured shop within the threshold
                                has a similar name
  No secured shops available    the workbook has no secured shops
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		sum, err := runPipeline(pipeline.ModeMatch, matchIO)
		if err != nil {
			return err
		}
		fmt.Printf("Found %d secured shops and %d unsecured shops.\n", sum.Secured, sum.Unsecured)
		labels := make([]string, 0, len(sum.Counts))
		for l := range sum.Counts {
			labels = append(labels, string(l))
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Printf("  %-28s %d\n", l, sum.Counts[models.Recommendation(l)])
		}
		fmt.Printf("Results saved to %s\n", sum.Output)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List suspicious duplicate pairs among secured shops",
	Long: `Pairs every secured shop with its nearest other secured shop and keeps the
pairs that are within the threshold and have similar names. A mutual pair is
listed once per direction.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		sum, err := runPipeline(pipeline.ModeAudit, auditIO)
		if err != nil {
			return err
		}
		if sum.Rows == 0 {
			fmt.Println("No suspicious duplicates found among secured shops.")
		} else {
			fmt.Printf("Found %d suspicious duplicate pairs among %d secured shops.\n", sum.Rows, sum.Secured)
		}
		fmt.Printf("Saved to %s\n", sum.Output)
		return nil
	},
}

func runPipeline(mode pipeline.Mode, io ioOptions) (*pipeline.Summary, error) {
	if io.input == "" {
		return nil, errors.New("--input is required")
	}
	opts, err := cfg.MatchOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger.With(zap.String("mode", string(mode)))

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Matching shops"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts.OnProgress = progressTo(bar)
	}

	in := pipeline.Input{Path: io.input, Sheet: cfg.Columns.Sheet, Columns: cfg.ExcelColumns()}
	sum, err := pipeline.Run(mode, in, io.output, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	return sum, err
}

func progressTo(bar *progressbar.ProgressBar) calculator.ProgressCallback {
	return func(current, total int, _ string) {
		bar.ChangeMax(total)
		_ = bar.Set(current)
	}
}

func init() {
	for _, c := range []struct {
		cmd *cobra.Command
		io  *ioOptions
	}{{matchCmd, &matchIO}, {auditCmd, &auditIO}} {
		c.cmd.Flags().StringVarP(&c.io.input, "input", "i", "", "registry workbook (.xlsx)")
		c.cmd.Flags().StringVarP(&c.io.output, "output", "o", c.io.output, "output workbook (.xlsx)")
		rootCmd.AddCommand(c.cmd)
	}
}
