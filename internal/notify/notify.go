// Package notify holds the user-facing notices raised by loads and
// mutations.
package notify

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/google/uuid"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultTTL is how long info and success notices stay visible.
const DefaultTTL = 5 * time.Second

// Notice is one message shown to the user.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Sticky    bool      `json:"sticky"`
}

// Center keeps the active notices. Errors stay until dismissed; the rest
// expire after the TTL.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	notices []Notice
}

// NewCenter creates a notice center. A non-positive ttl uses DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// SetClock replaces the time source.
func (c *Center) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Push adds a notice and returns it.
func (c *Center) Push(level Level, message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now(),
		Sticky:    level == LevelError,
	}
	c.notices = append(c.notices, n)
	return n
}

func (c *Center) Info(message string) Notice    { return c.Push(LevelInfo, message) }
func (c *Center) Success(message string) Notice { return c.Push(LevelSuccess, message) }
func (c *Center) Error(message string) Notice   { return c.Push(LevelError, message) }

// Report pushes the notice derived from err, if any.
func (c *Center) Report(err error, fallback string) (Notice, bool) {
	level, msg, ok := FromError(err, fallback)
	if !ok {
		return Notice{}, false
	}
	return c.Push(level, msg), true
}

// Dismiss removes a notice.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.notices, func(n Notice) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	c.notices = slices.Delete(c.notices, i, i+1)
	return true
}

// Active drops expired notices and returns the rest, oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.notices = slices.DeleteFunc(c.notices, func(n Notice) bool {
		return !n.Sticky && now.Sub(n.CreatedAt) >= c.ttl
	})
	return slices.Clone(c.notices)
}

// FromError maps err to the notice the user should see. ok is false for
// errors that are not shown at all.
func FromError(err error, fallback string) (level Level, message string, ok bool) {
	switch {
	case err == nil, errors.Is(err, record.ErrSuperseded), errors.Is(err, record.ErrClosed):
		return "", "", false
	case errors.Is(err, mutation.ErrCancelled):
		return LevelInfo, "Operación cancelada", true
	case errors.Is(err, mutation.ErrBusy):
		return LevelInfo, "Ya hay una operación en curso", true
	case errors.Is(err, mutation.ErrInvalidRUT):
		return LevelError, "El RUN ingresado no es válido", true
	case errors.Is(err, mutation.ErrReloadFailed):
		return LevelError, "Los cambios se guardaron, pero no se pudo recargar la tabla", true
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 && apiErr.Message == "" && apiErr.Detail == "" {
			return LevelError, "No se pudo conectar con el servidor", true
		}
		return LevelError, apiErr.UserMessage(fallback), true
	}
	if fallback == "" {
		fallback = err.Error()
	}
	return LevelError, fallback, true
}
