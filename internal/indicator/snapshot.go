package indicator

import (
	"math"
	"strings"
)

// ID 是指标的封闭枚举。复合退出条件只允许引用这里列出的指标，
// 外部写法（snake_case/camelCase 等）在边界处通过 Normalize 统一。
type ID string

const (
	IDPrice    ID = "price"
	IDRSI      ID = "rsi"
	IDSMA      ID = "sma"
	IDEMA      ID = "ema"
	IDMACD     ID = "macd"
	IDMACDHist ID = "macd_hist"
	IDATR      ID = "atr"
	IDBBUpper  ID = "bb_upper"
	IDBBMiddle ID = "bb_middle"
	IDBBLower  ID = "bb_lower"
	IDSAR      ID = "sar"
	IDADX      ID = "adx"
	IDVolume   ID = "volume"
	IDUnknown  ID = ""
)

var aliases = map[string]ID{
	"price":          IDPrice,
	"close":          IDPrice,
	"rsi":            IDRSI,
	"sma":            IDSMA,
	"ema":            IDEMA,
	"macd":           IDMACD,
	"macdhist":       IDMACDHist,
	"macd_hist":      IDMACDHist,
	"macdhistogram":  IDMACDHist,
	"atr":            IDATR,
	"bbupper":        IDBBUpper,
	"bb_upper":       IDBBUpper,
	"bollingerupper": IDBBUpper,
	"bbmiddle":       IDBBMiddle,
	"bb_middle":      IDBBMiddle,
	"bblower":        IDBBLower,
	"bb_lower":       IDBBLower,
	"bollingerlower": IDBBLower,
	"sar":            IDSAR,
	"parabolicsar":   IDSAR,
	"adx":            IDADX,
	"volume":         IDVolume,
}

// Normalize maps an externally supplied indicator name onto the closed enum.
// Unrecognized names return IDUnknown; callers must treat that as a config error.
func Normalize(name string) ID {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if id, ok := aliases[key]; ok {
		return id
	}
	// 容忍 camelCase：去掉下划线后再查一次。
	if id, ok := aliases[strings.ReplaceAll(key, "_", "")]; ok {
		return id
	}
	return IDUnknown
}

// Snapshot 保存一次评估可见的指标值：当前值与上一观测值。
// 上一值用于 CROSS_ABOVE / CROSS_BELOW 判断。
type Snapshot struct {
	Current  map[ID]float64
	Previous map[ID]float64
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Current:  make(map[ID]float64),
		Previous: make(map[ID]float64),
	}
}

// Value returns the current value for id, NaN when absent.
func (s *Snapshot) Value(id ID) float64 {
	if s == nil {
		return math.NaN()
	}
	if v, ok := s.Current[id]; ok {
		return v
	}
	return math.NaN()
}

// Prev returns the previous observation for id, NaN when absent.
func (s *Snapshot) Prev(id ID) float64 {
	if s == nil {
		return math.NaN()
	}
	if v, ok := s.Previous[id]; ok {
		return v
	}
	return math.NaN()
}

// Set 写入当前值，并把旧的当前值下移为上一值。
func (s *Snapshot) Set(id ID, v float64) {
	if prev, ok := s.Current[id]; ok {
		s.Previous[id] = prev
	}
	s.Current[id] = v
}
