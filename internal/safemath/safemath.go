// Copyright 2024 The Erigon Authors
// (modifications)
// This file is part of GamesmanExperiment.
//
// GamesmanExperiment is free software: you can redistribute it and/or
// modify it under the terms of the GNU General Public License as published
// by the Free Software Foundation, either version 3 of the License, or (at
// your option) any later version.
//
// GamesmanExperiment is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU General
// Public License for more details.

// Package safemath carries over the teacher's own overflow-checked
// integer helpers (erigon-lib/common/math), trimmed to the handful this
// repo actually exercises: combinatorial position ranking in games/quixo
// can in principle overflow int64 for large boards, and chunked database
// writes need a plain ceiling-division.
package safemath

import "math/bits"

// SafeMul returns x*y and reports whether the multiplication overflowed.
func SafeMul(x, y uint64) (product uint64, overflow bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// SafeAdd returns x+y and reports whether the addition overflowed.
func SafeAdd(x, y uint64) (sum uint64, overflow bool) {
	s, carryOut := bits.Add64(x, y, 0)
	return s, carryOut != 0
}

// CeilDiv returns ceil(x/y), or 0 if y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}
