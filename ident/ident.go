// Package ident builds the composite keys that identify one logical
// indicator invocation: which formula, with which inputs and parameters,
// reached from which place in the call graph.
//
// Keys are folded with 64-bit xxhash. Two calls with the same parent, site
// and arguments always produce the same key; changing any of them changes
// the key with overwhelming probability. Collisions are possible, as in any
// content-addressed cache, and no cryptographic guarantee is made.
package ident

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Site names a formula definition or a caller-side call site,
// e.g. "EMA" or "MACD.signal".
type Site string

// Key is the identity of one indicator invocation.
// The zero value is Root.
type Key struct {
	sum uint64
}

// Root is the "no parent" key.
var Root Key

// Keyed is implemented by anything that carries an identity,
// typically a series produced by another indicator.
type Keyed interface {
	Key() Key
}

// IsRoot reports whether k is the Root sentinel.
func (k Key) IsRoot() bool { return k.sum == 0 }

// Sum64 returns the folded hash.
func (k Key) Sum64() uint64 { return k.sum }

func (k Key) String() string {
	if k.IsRoot() {
		return "root"
	}
	return fmt.Sprintf("%016x", k.sum)
}

// Child is shorthand for Make(k, site, args...).
func (k Key) Child(site Site, args ...Arg) Key {
	return Make(k, site, args...)
}

type argKind byte

const (
	kindInt argKind = iota + 1
	kindFloat
	kindString
	kindBool
	kindKey
)

// Arg is one argument contribution reduced to a stable hash.
type Arg struct {
	kind argKind
	v    uint64
}

func Int(v int) Arg { return Arg{kind: kindInt, v: uint64(int64(v))} }

// Float canonicalises -0 to 0 and every NaN to a single value so that
// semantically equal parameters hash equally.
func Float(v float64) Arg {
	switch {
	case v == 0:
		v = 0
	case math.IsNaN(v):
		return Arg{kind: kindFloat, v: 0x7ff8000000000001}
	}
	return Arg{kind: kindFloat, v: math.Float64bits(v)}
}

func Str(s string) Arg { return Arg{kind: kindString, v: xxhash.Sum64String(s)} }

func Bool(b bool) Arg {
	if b {
		return Arg{kind: kindBool, v: 1}
	}
	return Arg{kind: kindBool}
}

// Of contributes the identity of an input series (or any Keyed value).
func Of(k Keyed) Arg { return Arg{kind: kindKey, v: k.Key().sum} }

// OfKey contributes a raw key.
func OfKey(k Key) Arg { return Arg{kind: kindKey, v: k.sum} }

// Make folds parent, site and the ordered argument list into one key.
func Make(parent Key, site Site, args ...Arg) Key {
	d := xxhash.New()
	var buf [9]byte

	// parent, with a presence marker so Root never equals a real parent
	if parent.IsRoot() {
		buf[0] = 0
	} else {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint64(buf[1:], parent.sum)
	_, _ = d.Write(buf[:])

	// length-prefixed site so ("ab", "c") and ("a", "bc") stay apart
	binary.LittleEndian.PutUint64(buf[1:], uint64(len(site)))
	buf[0] = 's'
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(string(site))

	for _, a := range args {
		buf[0] = byte(a.kind)
		binary.LittleEndian.PutUint64(buf[1:], a.v)
		_, _ = d.Write(buf[:])
	}

	sum := d.Sum64()
	if sum == 0 {
		// zero is reserved for Root
		sum = 1
	}
	return Key{sum: sum}
}
