// Package penalty считает длительность мута за попадание.
package penalty

import (
	"errors"
	"fmt"
	"time"
)

// DefaultBaseMinutes - базовая ставка, 16 часов.
const DefaultBaseMinutes = 16 * 60

var ErrInvalidConfiguration = errors.New("penalty: invalid configuration")

// Calculator растит наказание линейно с глубиной барабана:
// чем меньше камор осталось после рокового выстрела, тем дольше мут.
type Calculator struct {
	chambers    int
	baseMinutes int
}

func New(chambers, baseMinutes int) (Calculator, error) {
	if chambers <= 1 {
		return Calculator{}, fmt.Errorf("%w: chambers must be greater than 1, got %d", ErrInvalidConfiguration, chambers)
	}
	if baseMinutes <= 0 {
		return Calculator{}, fmt.Errorf("%w: base penalty must be positive, got %d minutes", ErrInvalidConfiguration, baseMinutes)
	}
	return Calculator{chambers: chambers, baseMinutes: baseMinutes}, nil
}

// Minutes возвращает мут в минутах для выстрела, после которого в барабане
// осталось remainingBefore камор. Значения вне [0, chambers) прижимаются к границам.
func (c Calculator) Minutes(remainingBefore int) int {
	r := min(max(remainingBefore, 0), c.chambers-1)
	return c.baseMinutes * (c.chambers - r)
}

// Duration - то же, что Minutes, в виде time.Duration.
func (c Calculator) Duration(remainingBefore int) time.Duration {
	return time.Duration(c.Minutes(remainingBefore)) * time.Minute
}

func (c Calculator) BaseMinutes() int {
	return c.baseMinutes
}
