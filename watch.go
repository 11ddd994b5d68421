package duskdb

import "reflect"

// WatchFunc receives a watched key's new and old values; HasOld is false
// for the initial set of a previously-unset key, and HasNew is false when
// the notification was produced by a delete (spec §4.2 "notifies per-key
// watchers with (newValue, oldValue)" / "(undefined, oldValue)").
type WatchFunc func(key string, newValue, oldValue interface{}, hasNew, hasOld bool)

type watchRegistry struct {
	subs map[string][]WatchFunc
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{subs: make(map[string][]WatchFunc)}
}

func (r *watchRegistry) watch(key string, fn WatchFunc) {
	r.subs[key] = append(r.subs[key], fn)
}

// unwatch removes fn from key's subscriber list. If fn is nil, every
// subscriber for key is cleared (spec: "unwatch without callback clears
// all for key").
func (r *watchRegistry) unwatch(key string, fn WatchFunc) {
	if fn == nil {
		delete(r.subs, key)
		return
	}
	subs := r.subs[key]
	out := subs[:0]
	for _, s := range subs {
		if !sameWatchFunc(s, fn) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		delete(r.subs, key)
	} else {
		r.subs[key] = out
	}
}

// sameWatchFunc compares WatchFunc values by code pointer via
// reflect.Value.Pointer: Go func values aren't comparable, so unwatch(key,
// cb) is only reliable when the caller passes back the exact cb instance
// handed to watch — callers are expected to retain that reference, the
// same contract the teacher's codebase uses for its listener removal.
func sameWatchFunc(a, b WatchFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func (r *watchRegistry) notify(key string, newValue, oldValue interface{}, hasNew, hasOld bool) {
	for _, fn := range r.subs[key] {
		func() {
			defer func() { recover() }()
			fn(key, newValue, oldValue, hasNew, hasOld)
		}()
	}
}

func (r *watchRegistry) clear() {
	r.subs = make(map[string][]WatchFunc)
}
