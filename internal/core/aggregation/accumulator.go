package aggregation

import (
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Bound is an optional extreme value. Valid is false until the first
// observation of a window has been accepted.
type Bound struct {
	Value int64
	Valid bool
}

func boundOf(v int64) Bound {
	return Bound{Value: v, Valid: true}
}

// Stats is a point-in-time copy of an Accumulator.
type Stats struct {
	Count uint64
	Sum   decimal.Decimal // exact; cannot overflow within a window
	Min   Bound
	Max   Bound
}

// Accumulator keeps count, sum, min and max of an unbounded sequence of
// observations. The zero value is an empty accumulator. It is not safe for
// concurrent use; the owning summarizer serializes access.
type Accumulator struct {
	count uint64
	sum   int128
	min   Bound
	max   Bound
}

// Accept folds one value into the accumulator in constant time.
func (a *Accumulator) Accept(v int64) {
	if !a.min.Valid || v < a.min.Value {
		a.min = boundOf(v)
	}
	if !a.max.Valid || v > a.max.Value {
		a.max = boundOf(v)
	}
	a.count++
	a.sum.add(v)
}

// Snapshot returns the current state without mutating it.
func (a *Accumulator) Snapshot() Stats {
	return Stats{
		Count: a.count,
		Sum:   a.sum.decimal(),
		Min:   a.min,
		Max:   a.max,
	}
}

// Count returns the number of accepted values since the last reset.
func (a *Accumulator) Count() uint64 {
	return a.count
}

// Reset returns the accumulator to empty. Calling it repeatedly is harmless.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// int128 is a two's complement 128-bit integer. 2^64 additions of int64
// values fit without overflow.
type int128 struct {
	hi int64
	lo uint64
}

func (n *int128) add(v int64) {
	var carry uint64
	n.lo, carry = bits.Add64(n.lo, uint64(v), 0)
	n.hi += (v >> 63) + int64(carry)
}

func (n int128) decimal() decimal.Decimal {
	if (n.hi == 0 && n.lo <= 1<<63-1) || (n.hi == -1 && n.lo >= 1<<63) {
		return decimal.NewFromInt(int64(n.lo))
	}
	b := new(big.Int).SetInt64(n.hi)
	b.Lsh(b, 64)
	b.Add(b, new(big.Int).SetUint64(n.lo))
	return decimal.NewFromBigInt(b, 0)
}
