package config

// Limits bounds pipeline behavior.
type Limits struct {
	DefaultBatchCount   int             `yaml:"default_batch_count" validate:"required,min=1,max=10"`
	MaxBatchCount       int             `yaml:"max_batch_count" validate:"required,min=1,max=10"`
	MaxRefineIterations int             `yaml:"max_refine_iterations" validate:"required,min=1,max=3"`
	SeedRetentionWindow int             `yaml:"seed_retention_window" validate:"required,min=1"`
	RateLimit           RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=600"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

// DefaultLimits provides sensible defaults.
func DefaultLimits() Limits {
	return Limits{
		DefaultBatchCount:   3,
		MaxBatchCount:       10,
		MaxRefineIterations: 2,
		SeedRetentionWindow: 12,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
	}
}
