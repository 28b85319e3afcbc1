package logx

import (
	"time"

	"github.com/rs/zerolog"
)

// Field decorates one log event. Later fields overwrite earlier ones with the
// same key.
type Field func(e *zerolog.Event)

func String(k, v string) Field { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Bool(k string, v bool) Field { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Time(k string, v time.Time) Field { return func(e *zerolog.Event) { e.Time(k, v) } }
func Any(k string, v any) Field { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Duration(k string, d time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, d) }
}

// Err attaches err under "err". A nil error adds nothing.
func Err(err error) Field {
	if err == nil {
		return nil
	}
	return func(e *zerolog.Event) { e.Err(err) }
}
