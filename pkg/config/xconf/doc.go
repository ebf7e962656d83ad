// Package xconf 加载 YAML/JSON 配置文件，基于 koanf 实现。
//
// Loader 按调用顺序叠加多个来源，后加载的键覆盖先加载的同名键，
// 适合“内置默认值 + 部署文件”的组合：
//
//	l := xconf.New()
//	_ = l.LoadBytes(defaults, xconf.FormatYAML)
//	_ = l.LoadFile("/etc/xdoc/config.yaml")
//
//	var cfg xmongo.Config
//	_ = l.Unmarshal("mongo", &cfg)
//
// Unmarshal 使用 mapstructure 的弱类型转换，"200ms" 这样的字符串可直接解码为 time.Duration。
// 环境变量覆盖不在本包处理，由调用方在 Unmarshal 之后叠加。
//
// Loader 的方法并发安全。
package xconf
