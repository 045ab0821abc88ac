package signal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"papertrader/internal/regime"
	"papertrader/internal/strategy/exit"
)

// Bundle 是一组按市场状态推荐的退出策略（handler ID 列表）。
type Bundle struct {
	Name       string   `json:"name" yaml:"-"`
	Strategies []string `json:"strategies" yaml:"strategies"`
}

// Evaluator 用 registry 里的 handler 装配出该组合的聚合评估器。
func (b Bundle) Evaluator(reg *exit.HandlerRegistry) (*exit.Evaluator, error) {
	handlers := make([]exit.Handler, 0, len(b.Strategies))
	for _, id := range b.Strategies {
		h, ok := reg.Handler(id)
		if !ok {
			return nil, fmt.Errorf("exit bundle %s references unregistered handler %q", b.Name, id)
		}
		handlers = append(handlers, h)
	}
	return exit.NewEvaluator(handlers...), nil
}

type bundleFile struct {
	Bundles   map[string]Bundle `yaml:"bundles"`
	Selection map[string]string `yaml:"selection"`
}

// BundleRegistry 把 (regime, volatility) 映射到推荐组合。
type BundleRegistry struct {
	bundles   map[string]Bundle
	selection map[string]string
}

// DefaultBundles 是内建映射，配置文件缺失时使用。
func DefaultBundles() *BundleRegistry {
	return &BundleRegistry{
		bundles: map[string]Bundle{
			"trend_high_vol": {Name: "trend_high_vol", Strategies: []string{"trailing_atr", "time_based", "high_low_break"}},
			"trend_ride":     {Name: "trend_ride", Strategies: []string{"trailing_atr", "parabolic_sar"}},
			"range_high_vol": {Name: "range_high_vol", Strategies: []string{"compound", "time_based", "high_low_break"}},
			"range_quiet":    {Name: "range_quiet", Strategies: []string{"high_low_break", "time_based"}},
			"conservative":   {Name: "conservative", Strategies: []string{"trailing_atr", "time_based"}},
		},
		selection: map[string]string{
			"trending_high":   "trend_high_vol",
			"trending_medium": "trend_ride",
			"trending_low":    "trend_ride",
			"ranging_high":    "range_high_vol",
			"ranging_medium":  "range_quiet",
			"ranging_low":     "range_quiet",
			"unknown":         "conservative",
		},
	}
}

// LoadBundles 从 YAML 读取组合定义，文件里缺省的键落回内建值。
func LoadBundles(path string) (*BundleRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading exit bundles failed: %w", err)
	}
	var file bundleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing exit bundles failed: %w", err)
	}
	reg := DefaultBundles()
	for name, b := range file.Bundles {
		b.Name = name
		if len(b.Strategies) == 0 {
			return nil, fmt.Errorf("exit bundle %s has no strategies", name)
		}
		reg.bundles[name] = b
	}
	for key, name := range file.Selection {
		if _, ok := reg.bundles[name]; !ok {
			return nil, fmt.Errorf("exit bundle selection %s references unknown bundle %q", key, name)
		}
		reg.selection[strings.ToLower(strings.TrimSpace(key))] = name
	}
	return reg, nil
}

// ForRegime 返回该市场状态下的推荐组合。
func (r *BundleRegistry) ForRegime(res regime.Result) Bundle {
	key := "unknown"
	switch res.Regime {
	case regime.Trending:
		key = "trending_" + string(res.Volatility)
	case regime.Ranging:
		key = "ranging_" + string(res.Volatility)
	}
	name, ok := r.selection[key]
	if !ok {
		name = r.selection["unknown"]
	}
	return r.bundles[name]
}

// Bundle 按名称取组合。
func (r *BundleRegistry) Bundle(name string) (Bundle, bool) {
	b, ok := r.bundles[name]
	return b, ok
}
