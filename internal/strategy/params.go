package strategy

import (
	"fmt"
	"strconv"

	"github.com/newthinker/meridian/internal/core"
)

// intParam reads an integer parameter; YAML and env values may arrive as
// int, float64 or string.
func intParam(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, core.Errorf(core.ErrConfigInvalid, "%s: %v is not an integer", key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, core.Errorf(core.ErrConfigInvalid, "%s: %w", key, err)
		}
		return i, nil
	default:
		return 0, core.Errorf(core.ErrConfigInvalid, "%s: unsupported type %T", key, v)
	}
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, core.Errorf(core.ErrConfigInvalid, "%s: %w", key, err)
		}
		return f, nil
	default:
		return 0, core.Errorf(core.ErrConfigInvalid, "%s: unsupported type %T", key, v)
	}
}

func positive(key string, v int) error {
	if v < 1 {
		return core.Errorf(core.ErrConfigInvalid, "%s must be positive, got %d", key, v)
	}
	return nil
}

func ordered(fastKey string, fast int, slowKey string, slow int) error {
	if fast >= slow {
		return core.Errorf(core.ErrConfigInvalid, "%s (%d) must be below %s (%d)", fastKey, fast, slowKey, slow)
	}
	return nil
}

func wrapParam(name string, err error) error {
	return fmt.Errorf("strategy %s: %w", name, err)
}
