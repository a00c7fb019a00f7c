package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the full runtime configuration. All fields are fixed
// for the process lifetime; a reload constructs a fresh engine instance
// rather than mutating a running one.
type AppConfig struct {
	Env        string          `yaml:"env"`
	Symbol     string          `yaml:"symbol"`
	Quote      QuoteConfig     `yaml:"quote"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Risk       RiskConfig      `yaml:"risk"`
	Engine     EngineConfig    `yaml:"engine"`
	Inventory  InventoryConfig `yaml:"inventory"`
	Feed       FeedConfig      `yaml:"feed"`
	Exchange   ExchangeConfig  `yaml:"exchange"`
	Logger     LoggerConfig    `yaml:"logger"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Alert      AlertConfig     `yaml:"alert"`
}

// QuoteConfig 决策核心参数。
type QuoteConfig struct {
	BaseSpreadPct        float64 `yaml:"baseSpreadPct"`        // 基础价差比例
	BaseOrderSize        float64 `yaml:"baseOrderSize"`        // 双边基础下单数量
	VolatilityMultiplier float64 `yaml:"volatilityMultiplier"` // ATR 价差放大系数
	MaxInventoryPct      float64 `yaml:"maxInventoryPct"`      // 库存占比上限 (0,1)
	MaxInventory         float64 `yaml:"maxInventory"`         // 基础币绝对上限，0 不启用
}

type IndicatorConfig struct {
	SMAPeriod       int `yaml:"smaPeriod"`
	ATRPeriod       int `yaml:"atrPeriod"`
	KlineIntervalMs int `yaml:"klineIntervalMs"` // 蜡烛聚合周期（毫秒）
}

// KlineInterval 返回蜡烛聚合周期。
func (c IndicatorConfig) KlineInterval() time.Duration {
	return time.Duration(c.KlineIntervalMs) * time.Millisecond
}

type RiskConfig struct {
	StopLossPct      float64 `yaml:"stopLossPct"`      // 止损阈值 (0,1)
	MaxOrderNotional float64 `yaml:"maxOrderNotional"` // 单笔名义上限，0 不启用
}

type EngineConfig struct {
	RefreshIntervalMs int    `yaml:"refreshIntervalMs"` // 重报价周期（毫秒）
	PriceType         string `yaml:"priceType"`         // mid 或 last
}

// RefreshInterval 返回重报价周期。
func (c EngineConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// InventoryConfig 纸面模式的初始余额。
type InventoryConfig struct {
	InitialBase  float64 `yaml:"initialBase"`
	InitialQuote float64 `yaml:"initialQuote"`
}

type FeedConfig struct {
	Endpoint string `yaml:"endpoint"` // WS 行情端点，空则离线（价格代理路径）
}

// ExchangeConfig 交易接口与合约粒度约束。
// API 密钥不落盘，从环境变量注入。
type ExchangeConfig struct {
	RestURL     string  `yaml:"restUrl"` // 留空则使用纸面网关
	APIKey      string  `yaml:"-"`
	APISecret   string  `yaml:"-"`
	TickSize    float64 `yaml:"tickSize"`
	StepSize    float64 `yaml:"stepSize"`
	MinQty      float64 `yaml:"minQty"`
	MinNotional float64 `yaml:"minNotional"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json 或 console
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空关闭 /metrics
}

// AlertConfig 告警通道配置。
type AlertConfig struct {
	WebhookURL         string `yaml:"webhookUrl"`         // 留空只写日志
	ThrottleIntervalMs int    `yaml:"throttleIntervalMs"` // 同类告警最小间隔
}

// ThrottleInterval 返回告警限流窗口。
func (c AlertConfig) ThrottleInterval() time.Duration {
	return time.Duration(c.ThrottleIntervalMs) * time.Millisecond
}

// Load reads YAML config from path and validates it.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides the feed endpoint
// from the environment if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PMM_FEED_ENDPOINT"); v != "" {
		cfg.Feed.Endpoint = v
	}
	if v := os.Getenv("PMM_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("PMM_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Engine.RefreshIntervalMs <= 0 {
		cfg.Engine.RefreshIntervalMs = 15000
	}
	if cfg.Engine.PriceType == "" {
		cfg.Engine.PriceType = "mid"
	}
	if cfg.Indicators.KlineIntervalMs <= 0 {
		cfg.Indicators.KlineIntervalMs = 60000
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if cfg.Alert.ThrottleIntervalMs <= 0 {
		cfg.Alert.ThrottleIntervalMs = 60000
	}
}

// Validate 启动时做一次全量域校验，失败直接终止进程。
// 配置加载后不可变，因此运行中不会再出现配置错误。
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.Quote.BaseSpreadPct < 0 {
		return errors.New("quote.baseSpreadPct must be >= 0")
	}
	if cfg.Quote.BaseOrderSize <= 0 {
		return errors.New("quote.baseOrderSize must be > 0")
	}
	if cfg.Quote.VolatilityMultiplier < 0 {
		return errors.New("quote.volatilityMultiplier must be >= 0")
	}
	if cfg.Quote.MaxInventoryPct <= 0 || cfg.Quote.MaxInventoryPct >= 1 {
		return errors.New("quote.maxInventoryPct must be in (0,1)")
	}
	if cfg.Quote.MaxInventory < 0 {
		return errors.New("quote.maxInventory must be >= 0")
	}
	if cfg.Indicators.SMAPeriod < 1 {
		return errors.New("indicators.smaPeriod must be >= 1")
	}
	if cfg.Indicators.ATRPeriod < 1 {
		return errors.New("indicators.atrPeriod must be >= 1")
	}
	if cfg.Risk.StopLossPct <= 0 || cfg.Risk.StopLossPct >= 1 {
		return errors.New("risk.stopLossPct must be in (0,1)")
	}
	if cfg.Risk.MaxOrderNotional < 0 {
		return errors.New("risk.maxOrderNotional must be >= 0")
	}
	if cfg.Engine.PriceType != "mid" && cfg.Engine.PriceType != "last" {
		return fmt.Errorf("engine.priceType must be mid or last, got %q", cfg.Engine.PriceType)
	}
	if cfg.Inventory.InitialBase < 0 || cfg.Inventory.InitialQuote < 0 {
		return errors.New("inventory balances must be >= 0")
	}
	if cfg.Exchange.TickSize < 0 || cfg.Exchange.StepSize < 0 ||
		cfg.Exchange.MinQty < 0 || cfg.Exchange.MinNotional < 0 {
		return errors.New("exchange constraints must be >= 0")
	}
	if cfg.Exchange.RestURL != "" && (cfg.Exchange.TickSize <= 0 || cfg.Exchange.StepSize <= 0) {
		return errors.New("exchange.tickSize and exchange.stepSize are required for live trading")
	}
	return nil
}
