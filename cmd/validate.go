package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richardjcool/MMTQueue/config"
	"github.com/richardjcool/MMTQueue/core/model"
	"github.com/richardjcool/MMTQueue/infra/catalog"
	"github.com/richardjcool/MMTQueue/infra/ephemeris"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog, ledger and ephemeris bundle without scheduling",
	RunE:  validateInputs,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateInputs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	requests, err := catalog.LoadFields(cfg.Catalog.FieldsDir)
	if err != nil {
		return err
	}
	dates, err := catalog.LoadDates(cfg.Catalog.DatesFile)
	if err != nil {
		return err
	}
	oracle, err := ephemeris.LoadBundle(cfg.Ephemeris.BundleFile)
	if err != nil {
		return err
	}
	allocations, err := catalog.LoadAllocations(cfg.Catalog.AllocatedTimeFile,
		oracle, dates[0], dates[len(dates)-1])
	if err != nil {
		return err
	}
	table, err := model.NewCompletionTable(requests, allocations)
	if err != nil {
		return err
	}
	if cfg.Catalog.DoneFile != "" {
		if err := catalog.ApplyDoneLedger(cfg.Catalog.DoneFile, table); err != nil {
			return err
		}
	}

	// Every night and every target series must resolve before a multi-hour
	// run is worth starting.
	for _, date := range dates {
		night, err := oracle.TwilightBounds(date)
		if err != nil {
			return err
		}
		for _, r := range requests {
			if _, err := oracle.VisibilitySeries(r.Position, night.EveningTwilight, night.Length()); err != nil {
				return fmt.Errorf("request %s: %w", r.ID, err)
			}
		}
	}

	cmd.Printf("catalog ok: %d requests, %d programs, %d nights\n",
		len(requests), len(allocations), len(dates))
	return nil
}
