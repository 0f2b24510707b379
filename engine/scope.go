package engine

import "github.com/rustyeddy/taengine/ident"

// Scope is the explicit context every indicator call receives: the run it
// evaluates in and the parent key its own keys are derived from.
//
// A composite indicator evaluates its parts Within its own key, so an EMA
// inside MACD never shares state with a bare EMA of the same input and period.
type Scope struct {
	run    *Run
	parent ident.Key
}

func (s Scope) Run() *Run         { return s.run }
func (s Scope) Parent() ident.Key { return s.parent }
func (s Scope) Bar() int          { return s.run.bar }

// Key derives the identity of a call made from this scope.
func (s Scope) Key(site ident.Site, args ...ident.Arg) ident.Key {
	return ident.Make(s.parent, site, args...)
}

// Within returns a scope whose calls are children of key.
func (s Scope) Within(key ident.Key) Scope {
	return Scope{run: s.run, parent: key}
}

// At returns a child scope for a distinct caller-side call site. Two
// otherwise identical calls made through different At sites get
// independent state.
func (s Scope) At(site ident.Site, args ...ident.Arg) Scope {
	return s.Within(s.Key(site, args...))
}
