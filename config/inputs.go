package config

import "fmt"

// CatalogConfig locates the observation catalog and its bookkeeping files.
type CatalogConfig struct {
	// FieldsDir is the directory scanned for .fld field files.
	FieldsDir string `json:"fields_dir"`
	// AllocatedTimeFile lists the nights granted to each program.
	AllocatedTimeFile string `json:"allocated_time_file"`
	// DoneFile is the ledger of visits already observed. Optional.
	DoneFile string `json:"done_file"`
	// DatesFile lists the nights of the campaign to schedule, one per line.
	DatesFile string `json:"dates_file"`
}

// Validate checks mandatory fields.
func (c CatalogConfig) Validate() error {
	if c.FieldsDir == "" {
		return fmt.Errorf("catalog: fields_dir is required")
	}
	if c.AllocatedTimeFile == "" {
		return fmt.Errorf("catalog: allocated_time_file is required")
	}
	if c.DatesFile == "" {
		return fmt.Errorf("catalog: dates_file is required")
	}
	return nil
}

// EphemerisConfig locates the precomputed ephemeris bundle.
type EphemerisConfig struct {
	// BundleFile is the JSON file of twilight bounds, per-target visibility
	// series, and lunar positions covering the campaign.
	BundleFile string `json:"bundle_file"`
}

// Validate checks mandatory fields.
func (c EphemerisConfig) Validate() error {
	if c.BundleFile == "" {
		return fmt.Errorf("ephemeris: bundle_file is required")
	}
	return nil
}

// OutputConfig sets where the final schedule is written.
type OutputConfig struct {
	// DatFile is the plain-text schedule. Always written.
	DatFile string `json:"dat_file"`
	// CSVFile and JSONFile are optional extra renderings.
	CSVFile  string `json:"csv_file"`
	JSONFile string `json:"json_file"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.DatFile == "" {
		c.DatFile = "schedule.dat"
	}
}
