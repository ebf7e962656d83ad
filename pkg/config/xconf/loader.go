package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 是配置内容的格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Loader 叠加多个配置来源并反序列化到结构体。零值不可用，请使用 New。
type Loader struct {
	mu      sync.RWMutex
	k       *koanf.Koanf
	opts    *Options
	sources []source
}

// source 记录一次叠加，Reload 时按原顺序重放。
type source struct {
	name   string
	path   string
	data   []byte
	format Format
}

// New 创建空的 Loader。
func New(opts ...Option) *Loader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Loader{k: koanf.New(o.Delim), opts: o}
}

// LoadFile 读取 path 并叠加到已有配置上，格式由扩展名决定（.yaml/.yml/.json）。
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return l.load(source{name: path, path: path, data: data, format: format})
}

// LoadBytes 把 data 按 format 解析并叠加到已有配置上。空数据为空操作。
func (l *Loader) LoadBytes(data []byte, format Format) error {
	if _, err := parserFor(format); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return l.load(source{name: "bytes:" + string(format), data: data, format: format})
}

func (l *Loader) load(src source) error {
	// 先解析到独立实例，失败时不污染已有配置
	next, err := l.parse(src)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Merge(next); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParseFailed, src.name, err)
	}
	l.sources = append(l.sources, src)
	return nil
}

func (l *Loader) parse(src source) (*koanf.Koanf, error) {
	parser, err := parserFor(src.format)
	if err != nil {
		return nil, err
	}
	k := koanf.New(l.opts.Delim)
	if err := k.Load(rawbytes.Provider(src.data), parser); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, src.name, err)
	}
	return k, nil
}

// Reload 重新读取全部文件来源并按原顺序重建配置，字节来源沿用原内容。
// 任一来源失败时保留旧配置。
func (l *Loader) Reload() error {
	l.mu.RLock()
	sources := append([]source(nil), l.sources...)
	l.mu.RUnlock()

	fresh := koanf.New(l.opts.Delim)
	for i, src := range sources {
		if src.path != "" {
			data, err := os.ReadFile(src.path)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrLoadFailed, err)
			}
			sources[i].data = data
		}
		next, err := l.parse(sources[i])
		if err != nil {
			return err
		}
		if err := fresh.Merge(next); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrParseFailed, src.name, err)
		}
	}

	l.mu.Lock()
	l.k = fresh
	l.sources = sources
	l.mu.Unlock()
	return nil
}

// Unmarshal 把 path 下的配置解码到 target，path 为空时解码全部配置。
func (l *Loader) Unmarshal(path string, target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: l.opts.Tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Exists 报告 path 是否存在。
func (l *Loader) Exists(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Exists(path)
}

// Keys 返回全部叶子键，已排序。
func (l *Loader) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Keys()
}

// Sources 按加载顺序返回已叠加的来源。
func (l *Loader) Sources() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, len(l.sources))
	for i, src := range l.sources {
		names[i] = src.name
	}
	return names
}

// FormatOf 根据扩展名判断配置格式。
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
