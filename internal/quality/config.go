package quality

import "time"

// Weights combine the three sub-scores into Overall.
type Weights struct {
	Completeness float64 `mapstructure:"completeness" default:"0.3" validate:"gte=0"`
	Consistency  float64 `mapstructure:"consistency" default:"0.4" validate:"gte=0"`
	Anomaly      float64 `mapstructure:"anomaly" default:"0.3" validate:"gte=0"`
}

// Config controls scoring.
type Config struct {
	Weights         Weights `mapstructure:"weights"`
	IQRFactor       float64 `mapstructure:"iqr_factor" default:"1.5" validate:"gt=0"`
	ExcludeWeekends bool    `mapstructure:"exclude_weekends" default:"true"`
	// Holidays are matched by UTC calendar date.
	Holidays []time.Time `mapstructure:"holidays"`
	// SessionLength is the trading day length used for intraday equity slots.
	SessionLength time.Duration `mapstructure:"session_length" default:"6h30m" validate:"gt=0"`

	CompletenessThreshold float64 `mapstructure:"completeness_threshold" default:"0.95" validate:"gte=0,lte=1"`
	ConsistencyThreshold  float64 `mapstructure:"consistency_threshold" default:"0.90" validate:"gte=0,lte=1"`
	AnomalyThreshold      float64 `mapstructure:"anomaly_threshold" default:"0.95" validate:"gte=0,lte=1"`
}
