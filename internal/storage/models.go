package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Profile - снимок данных игрока из Telegram (ник, имя). Хранится как есть
// и используется только для отображения, игровая логика его не читает.
type Profile map[string]any

// Поля профиля, которые заполняет транспорт.
const (
	ProfileUsername  = "username"
	ProfileFullName  = "full_name"
	ProfileFirstName = "first_name"
	ProfileLastName  = "last_name"
)

// String возвращает строковое поле профиля или "".
func (p Profile) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// PlayerRecord - статистика игрока.
// Инвариант: ShotCounter == MissCounter + DeadCounter, FirstShotAt <= LastShotAt.
type PlayerRecord struct {
	ID                  int64
	Profile             Profile
	ShotCounter         int
	MissCounter         int
	DeadCounter         int
	TotalPenaltySeconds int64
	FirstShotAt         time.Time
	LastShotAt          time.Time
}

// TotalPenalty - суммарное время в муте.
func (p PlayerRecord) TotalPenalty() time.Duration {
	return time.Duration(p.TotalPenaltySeconds) * time.Second
}

// Clock - источник текущего времени.
type Clock func() time.Time

type options struct {
	now Clock
}

type Option func(*options)

// WithClock подменяет часы хранилища.
func WithClock(now Clock) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func encodeProfile(p Profile) ([]byte, error) {
	if p == nil {
		p = Profile{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return b, nil
}

func decodeProfile(b []byte) (Profile, error) {
	p := Profile{}
	if len(b) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
