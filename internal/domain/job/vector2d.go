package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
)

// Vector2D is the 2-D projection of an embedding.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Slice returns [x, y] as rendered to clients.
func (v Vector2D) Slice() []float64 { return []float64{v.X, v.Y} }

// CoerceVector2D accepts the shapes the embedding service is known to return:
// an {"x":..,"y":..} object, or a sequence whose first two items are numbers.
// Anything else wraps domain.ErrInvalidVector2D.
func CoerceVector2D(raw any) (Vector2D, error) {
	switch v := raw.(type) {
	case Vector2D:
		return v, nil
	case map[string]any:
		x, okX := toFloat(v["x"])
		y, okY := toFloat(v["y"])
		if okX && okY {
			return Vector2D{X: x, Y: y}, nil
		}
	case []any:
		if len(v) >= 2 {
			x, okX := toFloat(v[0])
			y, okY := toFloat(v[1])
			if okX && okY {
				return Vector2D{X: x, Y: y}, nil
			}
		}
	case []float64:
		if len(v) >= 2 {
			return Vector2D{X: v[0], Y: v[1]}, nil
		}
	case []float32:
		if len(v) >= 2 {
			return Vector2D{X: float64(v[0]), Y: float64(v[1])}, nil
		}
	}
	return Vector2D{}, fmt.Errorf("%w: %v", domain.ErrInvalidVector2D, raw)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
