package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModeLive   = "live"
	ModeDryRun = "dry_run"
)

// DefaultUserAgent is sent on websocket handshakes and RPC requests.
const DefaultUserAgent = "chainflip-maker/1.0"

// AssetConfig is an asset entry in the config file.
type AssetConfig struct {
	Chain    string `yaml:"chain"`
	Asset    string `yaml:"asset"`
	Decimals int32  `yaml:"decimals"`
}

// InstrumentConfig is one quoted pair. Decimal values are kept as strings
// so that "0.998" is never rounded through float64.
type InstrumentConfig struct {
	Symbol      string      `yaml:"symbol"`
	Base        AssetConfig `yaml:"base"`
	Quote       AssetConfig `yaml:"quote"`
	BuyFactor   string      `yaml:"buy_factor"`
	SellFactor  string      `yaml:"sell_factor"`
	BuySize     string      `yaml:"buy_size"`
	SellSize    string      `yaml:"sell_size"`
	BuyOrderID  uint64      `yaml:"buy_order_id"`
	SellOrderID uint64      `yaml:"sell_order_id"`
}

// Config holds every setting of the maker.
// LoadConfig reads it from YAML and then applies environment overrides.
type Config struct {
	App struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		PprofAddr string `yaml:"pprof_addr"` // empty disables the profiling server
	} `yaml:"app"`

	Trading struct {
		Mode                 string `yaml:"mode"`
		PollIntervalMS       int    `yaml:"poll_interval_ms"`
		PriceChangeThreshold string `yaml:"price_change_threshold"`
	} `yaml:"trading"`

	Reference struct {
		WSURL           string `yaml:"ws_url"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		PingIntervalSec int    `yaml:"ping_interval_sec"`
	} `yaml:"reference"`

	Venue struct {
		WSURL             string `yaml:"ws_url"`
		RPCURL            string `yaml:"rpc_url"`
		LPAddress         string `yaml:"lp_address"`
		ReadTimeoutSec    int    `yaml:"read_timeout_sec"`
		HeartbeatLogSec   int    `yaml:"heartbeat_log_sec"`
		RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	} `yaml:"venue"`

	Reconnect struct {
		Mode        string `yaml:"mode"` // "fixed" or "exponential"
		DelaySec    int    `yaml:"delay_sec"`
		MaxDelaySec int    `yaml:"max_delay_sec"`
	} `yaml:"reconnect"`

	Instruments []InstrumentConfig `yaml:"instruments"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIURL   string `yaml:"api_url"`
	} `yaml:"telegram"`

	Accounting struct {
		FillFile   string `yaml:"fill_file"`
		SQLitePath string `yaml:"sqlite_path"`
		Kafka      struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"accounting"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads and validates the config file at path.
// A .env file in the working directory, if present, is loaded first.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, applies defaults and env overrides, and validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	// Missing .env is fine.
	_ = godotenv.Load()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Mode == "" {
		c.Trading.Mode = ModeDryRun
	}
	if c.Trading.PollIntervalMS == 0 {
		c.Trading.PollIntervalMS = 1000
	}
	if c.Trading.PriceChangeThreshold == "" {
		c.Trading.PriceChangeThreshold = "0.002"
	}
	if c.Reference.ReadTimeoutSec == 0 {
		c.Reference.ReadTimeoutSec = 60
	}
	if c.Reference.PingIntervalSec == 0 {
		c.Reference.PingIntervalSec = 50
	}
	if c.Venue.ReadTimeoutSec == 0 {
		c.Venue.ReadTimeoutSec = 30
	}
	if c.Venue.HeartbeatLogSec == 0 {
		c.Venue.HeartbeatLogSec = 60
	}
	if c.Venue.RequestTimeoutSec == 0 {
		c.Venue.RequestTimeoutSec = 10
	}
	if c.Reconnect.Mode == "" {
		c.Reconnect.Mode = "fixed"
	}
	if c.Reconnect.DelaySec == 0 {
		c.Reconnect.DelaySec = 5
	}
	if c.Reconnect.MaxDelaySec == 0 {
		c.Reconnect.MaxDelaySec = 60
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Accounting.FillFile == "" {
		c.Accounting.FillFile = "order_fills.jsonl"
	}
	if c.Accounting.SQLitePath == "" {
		c.Accounting.SQLitePath = "ledger.db"
	}
	if c.Accounting.Kafka.Topic == "" {
		c.Accounting.Kafka.Topic = "lp-fills"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	for i := range c.Instruments {
		inst := &c.Instruments[i]
		if inst.SellOrderID == 0 {
			inst.SellOrderID = uint64(4*i + 1)
		}
		if inst.BuyOrderID == 0 {
			inst.BuyOrderID = uint64(4*i + 2)
		}
		if inst.BuySize == "" {
			inst.BuySize = "0"
		}
		if inst.SellSize == "" {
			inst.SellSize = "0"
		}
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Trading.Mode != ModeLive && c.Trading.Mode != ModeDryRun {
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}
	if c.Trading.PollIntervalMS <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	threshold, err := decimal.NewFromString(c.Trading.PriceChangeThreshold)
	if err != nil || !threshold.IsPositive() {
		return fmt.Errorf("price change threshold must be a positive number: %q", c.Trading.PriceChangeThreshold)
	}

	if !isWSURL(c.Reference.WSURL) {
		return fmt.Errorf("invalid reference WS URL: %s", c.Reference.WSURL)
	}
	if !isWSURL(c.Venue.WSURL) {
		return fmt.Errorf("invalid venue WS URL: %s", c.Venue.WSURL)
	}
	if !strings.HasPrefix(c.Venue.RPCURL, "http://") && !strings.HasPrefix(c.Venue.RPCURL, "https://") {
		return fmt.Errorf("invalid venue RPC URL: %s", c.Venue.RPCURL)
	}
	if c.Reference.PingIntervalSec >= c.Reference.ReadTimeoutSec {
		return fmt.Errorf("reference ping interval (%ds) must be below the read timeout (%ds)",
			c.Reference.PingIntervalSec, c.Reference.ReadTimeoutSec)
	}
	if c.Reconnect.Mode != "fixed" && c.Reconnect.Mode != "exponential" {
		return fmt.Errorf("unknown reconnect mode: %s", c.Reconnect.Mode)
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if _, err := c.BuildInstruments(); err != nil {
		return err
	}

	return nil
}

// BuildInstruments converts the instrument section into domain instruments.
func (c *Config) BuildInstruments() ([]domain.Instrument, error) {
	out := make([]domain.Instrument, 0, len(c.Instruments))
	seenSymbol := make(map[string]bool)
	seenID := make(map[string]bool)

	for _, ic := range c.Instruments {
		if ic.Symbol == "" || ic.Base.Asset == "" || ic.Quote.Asset == "" {
			return nil, fmt.Errorf("instrument needs symbol, base and quote assets: %+v", ic)
		}
		if seenSymbol[ic.Symbol] {
			return nil, fmt.Errorf("duplicate instrument symbol: %s", ic.Symbol)
		}
		seenSymbol[ic.Symbol] = true

		if ic.Base.Decimals <= 0 || ic.Quote.Decimals <= 0 {
			return nil, fmt.Errorf("%s: asset decimals must be positive", ic.Symbol)
		}

		inst := domain.Instrument{
			Symbol:      ic.Symbol,
			Base:        domain.Asset{Chain: ic.Base.Chain, Symbol: ic.Base.Asset, Decimals: ic.Base.Decimals},
			Quote:       domain.Asset{Chain: ic.Quote.Chain, Symbol: ic.Quote.Asset, Decimals: ic.Quote.Decimals},
			BuyOrderID:  ic.BuyOrderID,
			SellOrderID: ic.SellOrderID,
		}

		var err error
		if inst.BuyFactor, err = positiveDecimal(ic.Symbol, "buy_factor", ic.BuyFactor); err != nil {
			return nil, err
		}
		if inst.SellFactor, err = positiveDecimal(ic.Symbol, "sell_factor", ic.SellFactor); err != nil {
			return nil, err
		}
		if inst.BuySize, err = nonNegativeDecimal(ic.Symbol, "buy_size", ic.BuySize); err != nil {
			return nil, err
		}
		if inst.SellSize, err = nonNegativeDecimal(ic.Symbol, "sell_size", ic.SellSize); err != nil {
			return nil, err
		}

		for _, key := range []string{
			fmt.Sprintf("%s/%s/%d", inst.Base.Symbol, inst.Quote.Symbol, inst.BuyOrderID),
			fmt.Sprintf("%s/%s/%d", inst.Base.Symbol, inst.Quote.Symbol, inst.SellOrderID),
		} {
			if seenID[key] {
				return nil, fmt.Errorf("%s: order id reused within the pair (%s)", ic.Symbol, key)
			}
			seenID[key] = true
		}

		out = append(out, inst)
	}
	return out, nil
}

// Threshold returns the requote threshold. Validate guarantees it parses.
func (c *Config) Threshold() decimal.Decimal {
	return decimal.RequireFromString(c.Trading.PriceChangeThreshold)
}

// PollInterval returns the quote engine tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalMS) * time.Millisecond
}

// ReconnectPolicy returns the backoff used by both websocket feeds.
func (c *Config) ReconnectPolicy() BackoffPolicy {
	delay := time.Duration(c.Reconnect.DelaySec) * time.Second
	if c.Reconnect.Mode == "exponential" {
		return ExponentialBackoff(delay, time.Duration(c.Reconnect.MaxDelaySec)*time.Second)
	}
	return FixedBackoff(delay)
}

func positiveDecimal(symbol, field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %s must be a positive number, got %q", symbol, field, s)
	}
	return d, nil
}

func nonNegativeDecimal(symbol, field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: %s must be a non-negative number, got %q", symbol, field, s)
	}
	return d, nil
}

func isWSURL(s string) bool {
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://")
}

// overrideWithEnv lets the environment win over the config file for secrets
// and deployment-specific endpoints.
func overrideWithEnv(cfg *Config) {
	if cfg.Telegram.BotToken != "" {
		// slog may not be configured yet
		fmt.Println("⚠️  SECURITY WARNING: Telegram bot token found in config file.")
		fmt.Println("   Recommendation: set MAKER_TELEGRAM_BOT_TOKEN in the environment or .env instead.")
	}

	if v := os.Getenv("MAKER_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("MAKER_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("MAKER_LP_ADDRESS"); v != "" {
		cfg.Venue.LPAddress = v
	}
	if v := os.Getenv("MAKER_RPC_URL"); v != "" {
		cfg.Venue.RPCURL = v
	}
	if v := os.Getenv("MAKER_KAFKA_BROKERS"); v != "" {
		cfg.Accounting.Kafka.Brokers = strings.Split(v, ",")
	}
}
