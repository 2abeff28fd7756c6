package types

import (
	"fmt"
	"sync/atomic"
)

// RowVar is a placeholder for an unknown remainder of an effect row.
// Error placeholders, created when inference had to recover from a failure,
// carry errorVarFlag
type RowVar uint32

const errorVarFlag RowVar = 1 << 31

func (v RowVar) IsError() bool { return v&errorVarFlag != 0 }

func (v RowVar) String() string {
	if v.IsError() {
		return "?err"
	}
	const letters = "efghijklmnopqrstuvwxyz"
	if int(v) < len(letters) {
		return string(letters[v])
	}
	return fmt.Sprintf("e%d", uint32(v))
}

// Level is the let-depth at which a RowVar was introduced.
// See "Efficient Generalization with Levels" (Oleg Kiselyov) -- http://okmij.org/ftp/ML/generalization.html#levels
type Level uint16

const TopLevel Level = 0

// Fresher hands out new RowVar IDs. There is one per Session,
// and it is safe for concurrent use so that functions can be inferred in parallel
type Fresher struct {
	freshCount atomic.Uint32
}

func NewFresher() *Fresher {
	return &Fresher{}
}

func (f *Fresher) Fresh() RowVar {
	return RowVar(f.freshCount.Add(1) - 1)
}

func (f *Fresher) FreshError() RowVar {
	return f.Fresh() | errorVarFlag
}

// Count is the number of variables handed out so far
func (f *Fresher) Count() uint32 {
	return f.freshCount.Load()
}
