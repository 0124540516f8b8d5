package health

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig rejects threshold files with out-of-range values.
var ErrInvalidConfig = errors.New("health: invalid configuration")

// Config is the threshold and deduction-weight table for the health monitor.
// Everything that used to be a magic number in a conditional lives here, so
// per-tenant overrides and boundary-value tests stay trivial.
//
// Weights express metric severity: an unhealthy metric deducts up to its
// weight from the starting score of 100, scaled by how far the measurement
// deviates from the threshold.
type Config struct {
	MinPaymentSuccessRate float64       `yaml:"min_payment_success_rate" env:"HEALTH_MIN_PAYMENT_SUCCESS_RATE" envDefault:"95"`
	MaxChurnRate          float64       `yaml:"max_churn_rate" env:"HEALTH_MAX_CHURN_RATE" envDefault:"5"`
	MaxAvgWebhookLatency  time.Duration `yaml:"max_avg_webhook_latency" env:"HEALTH_MAX_AVG_WEBHOOK_LATENCY" envDefault:"2s"`
	MaxPeakWebhookLatency time.Duration `yaml:"max_peak_webhook_latency" env:"HEALTH_MAX_PEAK_WEBHOOK_LATENCY" envDefault:"10s"`
	MaxQueueFailureRate   float64       `yaml:"max_queue_failure_rate" env:"HEALTH_MAX_QUEUE_FAILURE_RATE" envDefault:"5"`
	MaxAPIErrorRate       float64       `yaml:"max_api_error_rate" env:"HEALTH_MAX_API_ERROR_RATE" envDefault:"5"`
	MinMRRGrowthRate      float64       `yaml:"min_mrr_growth_rate" env:"HEALTH_MIN_MRR_GROWTH_RATE" envDefault:"0"`

	WeightPaymentSuccess float64 `yaml:"weight_payment_success" env:"HEALTH_WEIGHT_PAYMENT_SUCCESS" envDefault:"25"`
	WeightChurn          float64 `yaml:"weight_churn" env:"HEALTH_WEIGHT_CHURN" envDefault:"20"`
	WeightWebhook        float64 `yaml:"weight_webhook" env:"HEALTH_WEIGHT_WEBHOOK" envDefault:"10"`
	WeightQueue          float64 `yaml:"weight_queue" env:"HEALTH_WEIGHT_QUEUE" envDefault:"10"`
	WeightPaymentAPI     float64 `yaml:"weight_payment_api" env:"HEALTH_WEIGHT_PAYMENT_API" envDefault:"40"`
	WeightMRRGrowth      float64 `yaml:"weight_mrr_growth" env:"HEALTH_WEIGHT_MRR_GROWTH" envDefault:"10"`

	// CacheTTL bounds how long a "latest" report may serve from cache.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"HEALTH_CACHE_TTL" envDefault:"5m"`
	// FailureFloor is the score under which a health-check invocation exits
	// non-zero even without critical alerts.
	FailureFloor int `yaml:"failure_floor" env:"HEALTH_FAILURE_FLOOR" envDefault:"40"`
}

// DefaultConfig returns the platform-default thresholds and weights.
func DefaultConfig() Config {
	return Config{
		MinPaymentSuccessRate: 95,
		MaxChurnRate:          5,
		MaxAvgWebhookLatency:  2 * time.Second,
		MaxPeakWebhookLatency: 10 * time.Second,
		MaxQueueFailureRate:   5,
		MaxAPIErrorRate:       5,
		MinMRRGrowthRate:      0,
		WeightPaymentSuccess:  25,
		WeightChurn:           20,
		WeightWebhook:         10,
		WeightQueue:           10,
		WeightPaymentAPI:      40,
		WeightMRRGrowth:       10,
		CacheTTL:              5 * time.Minute,
		FailureFloor:          40,
	}
}

// LoadConfigFile reads a YAML threshold file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read health config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects thresholds and weights outside their meaningful ranges.
func (c Config) Validate() error {
	if c.MinPaymentSuccessRate < 0 || c.MinPaymentSuccessRate > 100 {
		return fmt.Errorf("%w: min_payment_success_rate must be in [0,100]", ErrInvalidConfig)
	}
	if c.MaxChurnRate < 0 || c.MaxChurnRate > 100 {
		return fmt.Errorf("%w: max_churn_rate must be in [0,100]", ErrInvalidConfig)
	}
	for name, w := range map[string]float64{
		"weight_payment_success": c.WeightPaymentSuccess,
		"weight_churn":           c.WeightChurn,
		"weight_webhook":         c.WeightWebhook,
		"weight_queue":           c.WeightQueue,
		"weight_payment_api":     c.WeightPaymentAPI,
		"weight_mrr_growth":      c.WeightMRRGrowth,
	} {
		if w < 0 || w > 100 {
			return fmt.Errorf("%w: %s must be in [0,100]", ErrInvalidConfig, name)
		}
	}
	if c.FailureFloor < 0 || c.FailureFloor > 100 {
		return fmt.Errorf("%w: failure_floor must be in [0,100]", ErrInvalidConfig)
	}
	return nil
}

// weight returns the deduction weight for a metric.
func (c Config) weight(m Metric) float64 {
	switch m {
	case MetricPaymentSuccessRate:
		return c.WeightPaymentSuccess
	case MetricChurnRate:
		return c.WeightChurn
	case MetricWebhookLatency:
		return c.WeightWebhook
	case MetricQueueFailureRate:
		return c.WeightQueue
	case MetricPaymentAPI:
		return c.WeightPaymentAPI
	case MetricMRRGrowth:
		return c.WeightMRRGrowth
	}
	return 0
}
