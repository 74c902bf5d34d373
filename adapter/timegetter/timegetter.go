// Package timegetter contains the default [domain.TimeGetter], the wall
// clock.
package timegetter

import (
	"time"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// TimeGetter implements [domain.TimeGetter].
type TimeGetter struct{}

// NewTimeGetter returns the wall clock.
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{}
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return time.Now()
}
