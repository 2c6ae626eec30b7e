package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shop-dedup/internal/config"
	"shop-dedup/internal/logging"
)

var (
	v          = config.NewViper()
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
	logLevel   zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "shop-dedup",
	Short: "find duplicate shops by location and name",
	Long: `
shop-dedup compares the shops of a registry workbook by distance and by name.
Shops without a prospect code are checked against the secured ones and
against each other; secured shops can be audited for duplicate pairs.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = c
		if logLevel, err = logging.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		if logger, err = logging.New(logLevel, cfg.Log.Format); err != nil {
			return fmt.Errorf("log.format: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute(version string) {
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func bind(key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func bindPersistent(key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ./config.yaml or ./configs/config.yaml)")
	pf.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	pf.String("log-format", d.Log.Format, "log format: console or json")
	bindPersistent("log.level", rootCmd, "log-level")
	bindPersistent("log.format", rootCmd, "log-format")

	pf.Float64("threshold-km", d.Matching.DuplicateThresholdKm, "maximum distance in km for two shops to count as duplicates")
	pf.Int("cross-k", d.Matching.CrossK, "candidates shortlisted when matching against secured shops")
	pf.Int("self-k", d.Matching.SelfK, "candidates shortlisted when matching a set against itself (includes the shop itself)")
	pf.Float64("secured-range-km", d.Matching.SecuredRangeKm, "ignore secured matches farther than this (0 disables)")
	pf.String("distance", d.Matching.Distance, "distance method: geodesic or haversine")
	pf.Bool("fold-accents", d.Matching.FoldAccents, "ignore accents when comparing names")
	pf.String("sheet", d.Columns.Sheet, "sheet to read (default the first sheet)")
	bindPersistent("matching.duplicate_threshold_km", rootCmd, "threshold-km")
	bindPersistent("matching.cross_k", rootCmd, "cross-k")
	bindPersistent("matching.self_k", rootCmd, "self-k")
	bindPersistent("matching.secured_range_km", rootCmd, "secured-range-km")
	bindPersistent("matching.distance", rootCmd, "distance")
	bindPersistent("matching.fold_accents", rootCmd, "fold-accents")
	bindPersistent("columns.sheet", rootCmd, "sheet")
}
