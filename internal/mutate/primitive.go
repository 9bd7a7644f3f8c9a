// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"math"
	"reflect"
)

// intMenuSize is the number of options offered to every signed integer
// mutator, regardless of width: random bit-mask, +1, -1, left-shift by one,
// negate, min, max, zero.
const intMenuSize = 8

// MutateInt applies the integer mutation menu to an addressable int8/16/32/64
// field. It reports whether a mutation was applied.
func (e *Engine) MutateInt(v reflect.Value, path uint64) (bool, error) {
	bits := v.Type().Bits()
	choice := e.PickOneOrNone(intMenuSize)
	if choice < 0 {
		return false, nil
	}
	old := v.Int()
	mask := maskForBits(bits)
	var n int64
	switch choice {
	case 0:
		n = old ^ int64(e.rnd.Uint64()&mask)
	case 1:
		n = old + 1
	case 2:
		n = old - 1
	case 3:
		n = old << 1
	case 4:
		n = -old
	case 5:
		n = minForBits(bits)
	case 6:
		n = maxForBits(bits)
	case 7:
		n = 0
	}
	n = truncateSigned(n, bits)
	v.SetInt(n)
	return true, e.logWrite(path, int64ToBytes(n, bits/8))
}

const uintMenuSize = 7

// MutateUint applies the unsigned-integer mutation menu.
func (e *Engine) MutateUint(v reflect.Value, path uint64) (bool, error) {
	bits := v.Type().Bits()
	choice := e.PickOneOrNone(uintMenuSize)
	if choice < 0 {
		return false, nil
	}
	old := v.Uint()
	mask := maskForBits(bits)
	var n uint64
	switch choice {
	case 0:
		n = old ^ (e.rnd.Uint64() & mask)
	case 1:
		n = old + 1
	case 2:
		n = old - 1
	case 3:
		n = old << 1
	case 4:
		n = 0
	case 5:
		n = mask // all-ones, the unsigned max for this width
	case 6:
		n = 1
	}
	n &= mask
	v.SetUint(n)
	return true, e.logWrite(path, uint64ToBytes(n, bits/8))
}

const floatMenuSize = 7

// MutateFloat applies the floating-point mutation menu: edge values
// (zero, max, infinities, NaN, subnormal) plus negation.
func (e *Engine) MutateFloat(v reflect.Value, path uint64) (bool, error) {
	bits := v.Type().Bits()
	choice := e.PickOneOrNone(floatMenuSize)
	if choice < 0 {
		return false, nil
	}
	var n float64
	switch choice {
	case 0:
		n = 0
	case 1:
		n = -v.Float()
	case 2:
		if bits == 32 {
			n = float64(math.MaxFloat32)
		} else {
			n = math.MaxFloat64
		}
	case 3:
		n = math.Inf(1)
	case 4:
		n = math.Inf(-1)
	case 5:
		n = math.NaN()
	case 6:
		// subnormal
		if bits == 32 {
			n = float64(math.SmallestNonzeroFloat32)
		} else {
			n = math.SmallestNonzeroFloat64
		}
	}
	v.SetFloat(n)
	var b []byte
	if bits == 32 {
		b = uint64ToBytes(uint64(math.Float32bits(float32(n))), 4)
	} else {
		b = uint64ToBytes(math.Float64bits(n), 8)
	}
	return true, e.logWrite(path, b)
}

// MutateBool flips a bool field.
func (e *Engine) MutateBool(v reflect.Value, path uint64) (bool, error) {
	choice := e.PickOneOrNone(1)
	if choice < 0 {
		return false, nil
	}
	nv := !v.Bool()
	v.SetBool(nv)
	b := byte(0)
	if nv {
		b = 1
	}
	return true, e.logWrite(path, []byte{b})
}

func (e *Engine) logWrite(path uint64, value []byte) error {
	if e.Log == nil {
		return nil
	}
	return e.Log.Write(path, value)
}

func maskForBits(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(bits)) - 1
}

func minForBits(bits int) int64 {
	return -(int64(1) << uint(bits-1))
}

func maxForBits(bits int) int64 {
	return int64(1)<<uint(bits-1) - 1
}

func truncateSigned(n int64, bits int) int64 {
	if bits >= 64 {
		return n
	}
	shift := uint(64 - bits)
	return (n << shift) >> shift
}

func int64ToBytes(n int64, width int) []byte {
	return uint64ToBytes(uint64(n), width)
}

func uint64ToBytes(n uint64, width int) []byte {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(n >> (8 * i))
	}
	return b
}
