package tone

import (
	"fmt"
	"math"
	"strings"
)

// Encoding 样本编码（数值类型、位宽、有无符号）
type Encoding int

const (
	Float32 Encoding = iota + 1
	Int32
	Int16
	Int8
	Uint8
)

var encodingNames = map[Encoding]string{
	Float32: "f32",
	Int32:   "i32",
	Int16:   "i16",
	Int8:    "i8",
	Uint8:   "u8",
}

// Encodings returns every supported encoding in command-line order.
func Encodings() []Encoding {
	return []Encoding{Float32, Int32, Int16, Int8, Uint8}
}

// ParseEncoding maps a format name (f32, i32, i16, i8, u8) to its Encoding.
func ParseEncoding(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for enc, n := range encodingNames {
		if n == key {
			return enc, nil
		}
	}
	return 0, fmt.Errorf("unknown format name: %q (supported: %s)", name, strings.Join(EncodingNames(), ", "))
}

// EncodingNames lists the accepted format names.
func EncodingNames() []string {
	names := make([]string, 0, len(encodingNames))
	for _, enc := range Encodings() {
		names = append(names, enc.String())
	}
	return names
}

func (e Encoding) String() string {
	if n, ok := encodingNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

func (e Encoding) Valid() bool {
	_, ok := encodingNames[e]
	return ok
}

// SampleSize is the size of one sample in bytes.
func (e Encoding) SampleSize() int {
	switch e {
	case Float32, Int32:
		return 4
	case Int16:
		return 2
	case Int8, Uint8:
		return 1
	}
	return 0
}

func (e Encoding) BitDepth() int {
	return e.SampleSize() * 8
}

// Bounds returns the representable range of the encoding. Float32 is
// nominally [-1, 1].
func (e Encoding) Bounds() (lo, hi float64) {
	switch e {
	case Float32:
		return -1, 1
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	}
	return 0, 0
}

// Silence is the stored value of sin(0) for the encoding.
func (e Encoding) Silence() float64 {
	if e == Uint8 {
		return (math.MaxUint8 + 1) / 2
	}
	return 0
}

// Sample is the set of Go types a generator can write into.
type Sample interface {
	float32 | int32 | int16 | int8 | uint8
}

// EncodingOf reports which Encoding the sample type T stores.
func EncodingOf[T Sample]() Encoding {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	case int16:
		return Int16
	case int8:
		return Int8
	case uint8:
		return Uint8
	}
	return 0
}

// Rounding 整数编码的量化策略
type Rounding int

const (
	// Round rounds to the nearest integer, halves away from zero.
	Round Rounding = iota
	// Truncate drops the fraction, matching a C-style cast.
	Truncate
)

func ParseRounding(name string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nearest", "round":
		return Round, nil
	case "truncate", "trunc":
		return Truncate, nil
	default:
		return 0, fmt.Errorf("unknown rounding policy: %q (supported: nearest, truncate)", name)
	}
}

func (r Rounding) String() string {
	if r == Truncate {
		return "truncate"
	}
	return "nearest"
}

// quantize converts a unit waveform value to the stored value of enc.
// Integer results saturate to the encoding's range.
func quantize[T Sample](enc Encoding, r Rounding, x float64) T {
	switch enc {
	case Float32:
		return T(x)
	case Int32:
		return T(fixed(math.MaxInt32*x, math.MinInt32, math.MaxInt32, r))
	case Int16:
		return T(fixed(math.MaxInt16*x, math.MinInt16, math.MaxInt16, r))
	case Int8:
		return T(fixed(math.MaxInt8*x, math.MinInt8, math.MaxInt8, r))
	case Uint8:
		return T(fixed((math.MaxUint8+1)/2+math.MaxUint8*x, 0, math.MaxUint8, r))
	}
	return 0
}

func fixed(v, lo, hi float64, r Rounding) float64 {
	if r == Truncate {
		v = math.Trunc(v)
	} else {
		v = math.Round(v)
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
