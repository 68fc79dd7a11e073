package revolver

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// DefaultChambers - классический шестизарядный револьвер.
const DefaultChambers = 6

var ErrInvalidConfiguration = errors.New("revolver: invalid configuration")

// Picker выбирает камору с патроном в диапазоне [0, n).
// Может вызываться одновременно для разных чатов.
type Picker func(n int) int

// Shot - результат одного выстрела.
type Shot struct {
	Hit bool
	// RemainingBefore - сколько камор осталось в барабане после этого выстрела.
	RemainingBefore int
	// Reloaded - за время выстрела барабан был заряжен заново.
	Reloaded bool
}

// cylinder - барабан чата со своим мьютексом.
type cylinder struct {
	mu    sync.Mutex
	state State
}

// Engine держит по барабану на чат. Состояние живёт только в памяти:
// после рестарта все чаты начинают со свежего барабана.
type Engine struct {
	chambers int
	pick     Picker

	mu    sync.Mutex // защищает только карту chats
	chats map[int64]*cylinder
}

type Option func(*Engine)

// WithPicker подменяет источник случайности, нужно для тестов.
func WithPicker(p Picker) Option {
	return func(e *Engine) {
		e.pick = p
	}
}

// New - создание движка на chambers камор.
func New(chambers int, opts ...Option) (*Engine, error) {
	if chambers <= 1 {
		return nil, fmt.Errorf("%w: chambers must be greater than 1, got %d", ErrInvalidConfiguration, chambers)
	}

	e := &Engine{
		chambers: chambers,
		pick:     rand.IntN,
		chats:    make(map[int64]*cylinder),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Fire - выстрел в чате chatID.
// Пустой или ещё не созданный барабан заряжается перед выстрелом,
// после попадания барабан сразу перезаряжается, чтобы следующий игрок начал с 1 из N.
// Выстрелы в одном чате строго последовательны, разные чаты друг друга не ждут.
func (e *Engine) Fire(chatID int64) Shot {
	c := e.cylinder(chatID)

	c.mu.Lock()
	defer c.mu.Unlock()

	var shot Shot
	if c.state.Empty() {
		c.state = e.reload()
		shot.Reloaded = true
	}

	shot.Hit = c.state.pop()
	shot.RemainingBefore = c.state.Len()

	if shot.Hit {
		c.state = e.reload()
		shot.Reloaded = true
	}
	return shot
}

// Chats - сколько чатов уже стреляли с момента запуска.
func (e *Engine) Chats() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.chats)
}

// Chambers - размер барабана.
func (e *Engine) Chambers() int {
	return e.chambers
}

// snapshot возвращает копию состояния барабана чата.
func (e *Engine) snapshot(chatID int64) (State, bool) {
	e.mu.Lock()
	c, ok := e.chats[chatID]
	e.mu.Unlock()
	if !ok {
		return State{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone(), true
}

// cylinder находит барабан чата или лениво создаёт его. Барабаны не удаляются.
func (e *Engine) cylinder(chatID int64) *cylinder {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.chats[chatID]
	if !ok {
		c = &cylinder{}
		e.chats[chatID] = c
	}
	return c
}

func (e *Engine) reload() State {
	loaded := e.pick(e.chambers)
	if loaded < 0 || loaded >= e.chambers {
		loaded = ((loaded % e.chambers) + e.chambers) % e.chambers
	}
	return newState(e.chambers, loaded)
}
