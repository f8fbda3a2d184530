package profile

// Config holds the tunable classification and summary parameters.
// Changing the quartile convention changes which rows get flagged as
// outliers, so these are part of the output contract.
type Config struct {
	NumericThreshold   float64 `json:"numeric_threshold"`    // fraction of numeric values for numeric classification
	CategoricalMaxCard int     `json:"categorical_max_card"` // distinct-value cap for categorical classification
	TopN               int     `json:"top_n"`                // categorical frequency list cap
	IQRFactor          float64 `json:"iqr_factor"`           // outlier fence multiplier
}

// DefaultConfig returns the practice defaults
func DefaultConfig() Config {
	return Config{
		NumericThreshold:   0.8,
		CategoricalMaxCard: 20,
		TopN:               10,
		IQRFactor:          1.5,
	}
}
