package duskdb

import "github.com/rs/zerolog"

// zerologAdapter satisfies the package-local logger interface over
// zerolog.Logger, so most files in this package depend on the narrow
// logger/logEvent interfaces instead of the zerolog API directly.
type zerologAdapter struct {
	l zerolog.Logger
}

func (z zerologAdapter) Info() logEvent  { return zerologEvent{z.l.Info()} }
func (z zerologAdapter) Warn() logEvent  { return zerologEvent{z.l.Warn()} }
func (z zerologAdapter) Error() logEvent { return zerologEvent{z.l.Error()} }

type zerologEvent struct {
	e *zerolog.Event
}

func (z zerologEvent) Str(key, value string) logEvent {
	z.e.Str(key, value)
	return z
}

func (z zerologEvent) Err(err error) logEvent {
	z.e.Err(err)
	return z
}

func (z zerologEvent) Msg(msg string) {
	z.e.Msg(msg)
}
