package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/MapleGits/MapleGame/base/log"
)

// SafeConfig 配置文件变化后整体替换，读写并发安全
type SafeConfig struct {
	lock sync.RWMutex
	cfg  *Config
}

func NewSafeConfig(cfg *Config) *SafeConfig {
	return &SafeConfig{cfg: cfg}
}

func (sc *SafeConfig) Load() *Config {
	sc.lock.RLock()
	defer sc.lock.RUnlock()
	return sc.cfg
}

func (sc *SafeConfig) Store(cfg *Config) {
	sc.lock.Lock()
	sc.cfg = cfg
	sc.lock.Unlock()
}

// Watch 监听配置文件，解析成功才替换，随后调用cbs
// 日志级别总是自动切换，其余的配置是否热更新由回调决定
func Watch(v *viper.Viper, sc *SafeConfig, cbs ...func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		Reload(v, sc, cbs...)
	})
	v.WatchConfig()
}

// Reload 重新解析viper当前的内容
func Reload(v *viper.Viper, sc *SafeConfig, cbs ...func(*Config)) {
	cfg, err := Decode(v)
	if err != nil {
		log.Error("reload config failed, keep the old one: %v", err)
		return
	}
	sc.Store(cfg)
	log.ChangeLogLevel(log.ParseLevel(cfg.Log.Level))
	for _, cb := range cbs {
		cb(cfg)
	}
	log.Info("config reloaded, log level %s", cfg.Log.Level)
}
