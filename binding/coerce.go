package binding

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cast"

	"github.com/wippyai/wasm-binding/errors"
)

// Host values arrive untyped. These helpers turn them into the boundary's
// native integer types, rejecting nil, non-numeric and out-of-range input.
// Fractional floats truncate toward zero. Numeric strings are base 10 only.

func toInt64(path []string, v any, witType string) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, errors.MissingArgument(path, witType)
	case bool:
		return 0, errors.InvalidArgument(path, "bool", witType, nil)
	case string:
		return parseDecimal(path, x, witType)
	case json.Number:
		return parseDecimal(path, string(x), witType)
	case float32:
		return floatToInt64(path, float64(x), witType)
	case float64:
		return floatToInt64(path, x, witType)
	case uint64:
		if x > math.MaxInt64 {
			return 0, errors.Overflow(path, x, witType)
		}
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, errors.Overflow(path, x, witType)
		}
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		if numErr, ok := rangeError(err); ok {
			return 0, overflowCause(path, v, witType, numErr)
		}
		return 0, errors.InvalidArgument(path, fmt.Sprintf("%T", v), witType, err)
	}
	return n, nil
}

// parseDecimal accepts an optionally signed base-10 integer. Base prefixes
// ("0x", "0o", "0b") and digit separators are rejected; leading zeros are
// plain decimal digits, so "010" is 10.
func parseDecimal(path []string, s string, witType string) (int64, error) {
	if s == "" {
		return 0, errors.InvalidArgument(path, "string", witType, fmt.Errorf("empty string"))
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if numErr, ok := rangeError(err); ok {
			return 0, overflowCause(path, s, witType, numErr)
		}
		return 0, errors.InvalidArgument(path, "string", witType, err)
	}
	return n, nil
}

func overflowCause(path []string, v any, witType string, cause error) error {
	return errors.New(errors.PhaseMarshal, errors.KindOverflow).
		Path(path...).
		WitType(witType).
		Value(v).
		Cause(cause).
		Detail("value %v overflows %s", v, witType).
		Build()
}

func floatToInt64(path []string, f float64, witType string) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.InvalidArgument(path, "float64", witType, fmt.Errorf("%v is not a finite number", f))
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, errors.Overflow(path, f, witType)
	}
	return int64(t), nil
}

// rangeError reports whether cast failed because a numeric string was out
// of range rather than malformed.
func rangeError(err error) (*strconv.NumError, bool) {
	var numErr *strconv.NumError
	if stderrors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
		return numErr, true
	}
	return nil, false
}

// toInt32 coerces v to s32.
func toInt32(path []string, v any) (int32, error) {
	n, err := toInt64(path, v, "s32")
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errors.Overflow(path, n, "s32")
	}
	return int32(n), nil
}

// toUint32 coerces v to u32, rejecting values above limit.
func toUint32(path []string, v any, limit uint32) (uint32, error) {
	n, err := toInt64(path, v, "u32")
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(limit) {
		return 0, errors.Overflow(path, n, "u32")
	}
	return uint32(n), nil
}

// toInt32Slice coerces v to list<s32>. The result never aliases v.
func toInt32Slice(path []string, v any) ([]int32, error) {
	switch s := v.(type) {
	case nil:
		return nil, errors.MissingArgument(path, "list<s32>")
	case []int32:
		return append(make([]int32, 0, len(s)), s...), nil
	case []bool:
		return nil, errors.InvalidArgument(path, "[]bool", "list<s32>", nil)
	case []any:
		return eachInt32(path, s)
	case []string:
		return eachInt32(path, s)
	}

	wide, err := cast.ToInt64SliceE(v)
	if err != nil {
		return nil, errors.InvalidArgument(path, fmt.Sprintf("%T", v), "list<s32>", err)
	}
	out := make([]int32, len(wide))
	for i, n := range wide {
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, errors.Overflow(elemPath(path, i), n, "s32")
		}
		out[i] = int32(n)
	}
	return out, nil
}

func eachInt32[E any](path []string, s []E) ([]int32, error) {
	out := make([]int32, len(s))
	for i, elem := range s {
		n, err := toInt32(elemPath(path, i), elem)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func elemPath(path []string, i int) []string {
	p := make([]string, len(path), len(path)+1)
	copy(p, path)
	return append(p, strconv.Itoa(i))
}

// checkedAdd returns a + b, or an overflow error when the sum leaves s32.
func checkedAdd(path []string, a, b int32) (int32, error) {
	sum := int64(a) + int64(b)
	if sum < math.MinInt32 || sum > math.MaxInt32 {
		return 0, errors.Overflow(path, sum, "s32")
	}
	return int32(sum), nil
}
