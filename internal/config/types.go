package config

// Config is the root of the YAML configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BridgeConfig points at the Windows bridge agent.
type BridgeConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// BootstrapConfig seeds the initial trading configuration row when the
// database has none. It is ignored once a configuration exists.
type BootstrapConfig struct {
	Name                string `mapstructure:"name"`
	TradeMode           string `mapstructure:"trade_mode"`
	AccountNo           string `mapstructure:"account_no"`
	AppKey              string `mapstructure:"app_key"`
	AppSecret           string `mapstructure:"app_secret"`
	MaxBuyAmount        int64  `mapstructure:"max_buy_amount"`
	MaxBuyPerInstrument int64  `mapstructure:"max_buy_per_instrument"`
}
