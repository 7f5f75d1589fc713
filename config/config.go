// Package config 频道服务的配置，按 flag > 环境变量 > 配置文件 > 默认值 的优先级合并
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/network/buffer"
	"github.com/MapleGits/MapleGame/network/dispatch"
)

const EnvPrefix = "CHANNEL"

const (
	CryptoAES  = "aes"
	CryptoNone = "none"
)

type Config struct {
	Listen  string        `mapstructure:"listen"`
	MaxConn int           `mapstructure:"max_conn"`
	Title   string        `mapstructure:"title"`
	Log     LogConfig     `mapstructure:"log"`
	Packet  PacketConfig  `mapstructure:"packet"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Buffer  BufferConfig  `mapstructure:"buffer"`
	Limit   LimitConfig   `mapstructure:"limit"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Trace   TraceConfig   `mapstructure:"trace"`
}

type LogConfig struct {
	Name       string `mapstructure:"name"`
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	Out        string `mapstructure:"out"`
	Rotate     bool   `mapstructure:"rotate"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type PacketConfig struct {
	LogLevel   string `mapstructure:"log_level"`
	RecordPath string `mapstructure:"record_path"`
}

type CryptoConfig struct {
	Mode       string `mapstructure:"mode"`
	Version    uint16 `mapstructure:"version"`
	Subversion string `mapstructure:"subversion"`
	Locale     uint8  `mapstructure:"locale"`
}

type BufferConfig struct {
	Initial int `mapstructure:"initial"`
	Max     int `mapstructure:"max"`
}

type LimitConfig struct {
	PacketsPerSecond float64 `mapstructure:"packets_per_second"`
	Burst            int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// TraceConfig endpoint为空时span输出到stdout
type TraceConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	TLS         bool    `mapstructure:"tls"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

// SetDefaults 所有的key都必须有默认值，否则AutomaticEnv不会生效
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8585")
	v.SetDefault("max_conn", 1000)
	v.SetDefault("title", "Client")
	v.SetDefault("log.name", "channel")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "./log")
	v.SetDefault("log.out", "console")
	v.SetDefault("log.rotate", false)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("packet.log_level", "name")
	v.SetDefault("packet.record_path", "")
	v.SetDefault("crypto.mode", CryptoAES)
	v.SetDefault("crypto.version", 83)
	v.SetDefault("crypto.subversion", "1")
	v.SetDefault("crypto.locale", 8)
	v.SetDefault("buffer.initial", buffer.DefaultInitialSize)
	v.SetDefault("buffer.max", buffer.DefaultMaxSize)
	v.SetDefault("limit.packets_per_second", 0)
	v.SetDefault("limit.burst", 50)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.endpoint", "")
	v.SetDefault("trace.tls", false)
	v.SetDefault("trace.sample_rate", 1.0)
	v.SetDefault("trace.environment", "prod")
}

// New 创建带默认值和环境变量映射的viper，log.level对应CHANNEL_LOG_LEVEL
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load path为空时只使用默认值和环境变量，flags中设置过的值优先级最高
// flag名字里的-对应key里的.，如 --log-level 对应 log.level
func Load(path string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// BindFlags 把flag绑定到同名的key上，没有对应key的flag忽略
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	keys := lo.SliceToMap(v.AllKeys(), func(k string) (string, struct{}) {
		return k, struct{}{}
	})
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", ".")
		if _, ok := keys[key]; !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := keys[key]; !ok {
				return
			}
		}
		if e := v.BindPFlag(key, f); e != nil && err == nil {
			err = fmt.Errorf("config: bind flag %s: %w", f.Name, e)
		}
	})
	return err
}

func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Log.Path = os.ExpandEnv(cfg.Log.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置之间是否一致
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.MaxConn < 0 {
		errs = append(errs, fmt.Errorf("max_conn must not be negative, got %d", c.MaxConn))
	}
	if c.Crypto.Mode != CryptoAES && c.Crypto.Mode != CryptoNone {
		errs = append(errs, fmt.Errorf("crypto.mode must be %q or %q, got %q", CryptoAES, CryptoNone, c.Crypto.Mode))
	}
	if c.Buffer.Initial <= 0 {
		errs = append(errs, fmt.Errorf("buffer.initial must be positive, got %d", c.Buffer.Initial))
	}
	if c.Buffer.Max < c.Buffer.Initial {
		errs = append(errs, fmt.Errorf("buffer.max %d is smaller than buffer.initial %d", c.Buffer.Max, c.Buffer.Initial))
	}
	if c.Limit.PacketsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("limit.packets_per_second must not be negative"))
	}
	if c.Limit.PacketsPerSecond > 0 && c.Limit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("limit.burst must be positive when rate limiting is enabled"))
	}
	if c.Trace.SampleRate < 0 || c.Trace.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("trace.sample_rate must be within [0, 1], got %v", c.Trace.SampleRate))
	}
	if _, err := dispatch.ParseLogLevel(c.Packet.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LogOptions 转换为log.Setup的参数
func (c *Config) LogOptions() log.Options {
	return log.Options{
		Name:       c.Log.Name,
		Path:       c.Log.Path,
		Level:      log.ParseLevel(c.Log.Level),
		Out:        log.OutTypeAlias(c.Log.Out),
		Rotate:     c.Log.Rotate,
		MaxSize:    c.Log.MaxSize,
		MaxAge:     c.Log.MaxAge,
		MaxBackups: c.Log.MaxBackups,
	}
}

// PacketLogLevel Validate之后调用，不会失败
func (c *Config) PacketLogLevel() dispatch.LogLevel {
	l, _ := dispatch.ParseLogLevel(c.Packet.LogLevel)
	return l
}
