// Package config loads the immutable configuration shared by every pipeline
// stage. A single Config value is built once at process start and passed by
// value to each stage's constructor; nothing here is mutated afterwards.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every knob enumerated in the system's config surface.
type Config struct {
	// Spool / image directories (§6 Config surface).
	SpoolDir string
	ImageDir string
	SyncFile string

	// Curator maintenance.
	MaintIntervalSecs int
	ExpireEnabled     bool
	AnnotateCRL       bool
	ImmediateCRLUpdate bool

	// Image rendering.
	ImageQuietSeconds    int
	ImageMapConfiguration int // 0, 1, or 2 (§4.5 step 6)
	ImagePalette         map[string]string
	NotIncludedRGB       [3]uint8

	// Location enrichment toggles.
	LocationEnrichWx    bool
	LocationEnrichPirep bool
	LocationEnrichSUA   bool

	// PIREP handling.
	SaveUnmatchedPireps bool
	AlwaysForwardPireps bool // L3 "PIREPs optionally always forwarded"

	// L0/L1 behavior.
	DetailedMode       bool
	LegacyDLAC4Bit     bool
	SegmentTTL         time.Duration
	TWGOTTL            time.Duration
	RSRWindowSecs      int
	RSREmitEverySecs   int

	// L3 dedup.
	RefreshFloor time.Duration

	// Drops the extra hour of TWGO smart expiration, for deterministic testing.
	BypassSmartExpiration bool

	// Store connectivity retry.
	RetryDBConnSecs int

	// Virtual clock offset, set by Trickle in test mode; zero in production.
	VirtualClockOffset time.Duration
}

// Default returns production defaults. Load overlays a subset of these
// fields from a config file and environment variables; the others keep
// their defaults there.
func Default() Config {
	return Config{
		SpoolDir:              "./spool",
		ImageDir:              "./images",
		SyncFile:              "",
		MaintIntervalSecs:     10,
		ExpireEnabled:         true,
		AnnotateCRL:           true,
		ImmediateCRLUpdate:    false,
		ImageQuietSeconds:     10,
		ImageMapConfiguration: 0,
		ImagePalette:          map[string]string{},
		NotIncludedRGB:        [3]uint8{0, 0, 0},
		LocationEnrichWx:      true,
		LocationEnrichPirep:   true,
		LocationEnrichSUA:     true,
		SaveUnmatchedPireps:   false,
		AlwaysForwardPireps:   true,
		DetailedMode:          false,
		LegacyDLAC4Bit:        false,
		SegmentTTL:            60 * time.Second,
		TWGOTTL:               12 * time.Hour,
		RSRWindowSecs:         60,
		RSREmitEverySecs:      10,
		RefreshFloor:          5 * time.Minute,
		BypassSmartExpiration: false,
		RetryDBConnSecs:       30,
		VirtualClockOffset:    0,
	}
}

// Load builds a Config from defaults overlaid with a config file (if any)
// and environment variables prefixed FISB_, via viper. It reads no flags;
// callers parse their own flag.FlagSet and apply those values to the
// returned Config.
func Load(configFile string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("FISB")
	v.AutomaticEnv()

	v.SetDefault("spool_dir", cfg.SpoolDir)
	v.SetDefault("image_dir", cfg.ImageDir)
	v.SetDefault("sync_file", cfg.SyncFile)
	v.SetDefault("maint_interval_secs", cfg.MaintIntervalSecs)
	v.SetDefault("expire_enabled", cfg.ExpireEnabled)
	v.SetDefault("annotate_crl", cfg.AnnotateCRL)
	v.SetDefault("immediate_crl_update", cfg.ImmediateCRLUpdate)
	v.SetDefault("image_quiet_seconds", cfg.ImageQuietSeconds)
	v.SetDefault("image_map_configuration", cfg.ImageMapConfiguration)
	v.SetDefault("location_enrich_wx", cfg.LocationEnrichWx)
	v.SetDefault("location_enrich_pirep", cfg.LocationEnrichPirep)
	v.SetDefault("location_enrich_sua", cfg.LocationEnrichSUA)
	v.SetDefault("save_unmatched_pireps", cfg.SaveUnmatchedPireps)
	v.SetDefault("always_forward_pireps", cfg.AlwaysForwardPireps)
	v.SetDefault("detailed_mode", cfg.DetailedMode)
	v.SetDefault("legacy_dlac_4bit", cfg.LegacyDLAC4Bit)
	v.SetDefault("retry_db_conn_secs", cfg.RetryDBConnSecs)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg.SpoolDir = v.GetString("spool_dir")
	cfg.ImageDir = v.GetString("image_dir")
	cfg.SyncFile = v.GetString("sync_file")
	cfg.MaintIntervalSecs = v.GetInt("maint_interval_secs")
	cfg.ExpireEnabled = v.GetBool("expire_enabled")
	cfg.AnnotateCRL = v.GetBool("annotate_crl")
	cfg.ImmediateCRLUpdate = v.GetBool("immediate_crl_update")
	cfg.ImageQuietSeconds = v.GetInt("image_quiet_seconds")
	cfg.ImageMapConfiguration = v.GetInt("image_map_configuration")
	cfg.LocationEnrichWx = v.GetBool("location_enrich_wx")
	cfg.LocationEnrichPirep = v.GetBool("location_enrich_pirep")
	cfg.LocationEnrichSUA = v.GetBool("location_enrich_sua")
	cfg.SaveUnmatchedPireps = v.GetBool("save_unmatched_pireps")
	cfg.AlwaysForwardPireps = v.GetBool("always_forward_pireps")
	cfg.DetailedMode = v.GetBool("detailed_mode")
	cfg.LegacyDLAC4Bit = v.GetBool("legacy_dlac_4bit")
	cfg.RetryDBConnSecs = v.GetInt("retry_db_conn_secs")

	return cfg, nil
}

// MaintInterval returns the Curator maintenance tick as a Duration.
func (c Config) MaintInterval() time.Duration {
	return time.Duration(c.MaintIntervalSecs) * time.Second
}

// RSRWindow returns the RSR sliding window as a Duration.
func (c Config) RSRWindow() time.Duration {
	return time.Duration(c.RSRWindowSecs) * time.Second
}

// RSREmitInterval returns how often RSR products are synthesized.
func (c Config) RSREmitInterval() time.Duration {
	return time.Duration(c.RSREmitEverySecs) * time.Second
}
