package claim

// FraudFlags records which fraud checks fired for a claim. The bitmask form
// is what gets persisted and exported; the named fields keep call sites
// readable.
type FraudFlags struct {
	Timing         bool `json:"timing"`
	Amount         bool `json:"amount"`
	History        bool `json:"history"`
	Evidence       bool `json:"evidence"`
	Collusion      bool `json:"collusion"`
	MultipleClaims bool `json:"multiple_claims"`
	Inconsistency  bool `json:"inconsistency"`
}

// Bit positions in the persisted mask. Order is part of the storage format.
const (
	flagTiming uint8 = 1 << iota
	flagAmount
	flagHistory
	flagEvidence
	flagCollusion
	flagMultipleClaims
	flagInconsistency
)

// Bitmask packs the flags into their wire form.
func (f FraudFlags) Bitmask() uint8 {
	var mask uint8
	if f.Timing {
		mask |= flagTiming
	}
	if f.Amount {
		mask |= flagAmount
	}
	if f.History {
		mask |= flagHistory
	}
	if f.Evidence {
		mask |= flagEvidence
	}
	if f.Collusion {
		mask |= flagCollusion
	}
	if f.MultipleClaims {
		mask |= flagMultipleClaims
	}
	if f.Inconsistency {
		mask |= flagInconsistency
	}
	return mask
}

// FlagsFromBitmask unpacks a persisted mask.
func FlagsFromBitmask(mask uint8) FraudFlags {
	return FraudFlags{
		Timing:         mask&flagTiming != 0,
		Amount:         mask&flagAmount != 0,
		History:        mask&flagHistory != 0,
		Evidence:       mask&flagEvidence != 0,
		Collusion:      mask&flagCollusion != 0,
		MultipleClaims: mask&flagMultipleClaims != 0,
		Inconsistency:  mask&flagInconsistency != 0,
	}
}

// Count returns how many checks fired.
func (f FraudFlags) Count() int {
	n := 0
	for _, set := range []bool{f.Timing, f.Amount, f.History, f.Evidence, f.Collusion, f.MultipleClaims, f.Inconsistency} {
		if set {
			n++
		}
	}
	return n
}

// Any reports whether at least one check fired.
func (f FraudFlags) Any() bool {
	return f.Bitmask() != 0
}

// Names lists the fired flags in mask order.
func (f FraudFlags) Names() []string {
	var names []string
	if f.Timing {
		names = append(names, "timing")
	}
	if f.Amount {
		names = append(names, "amount")
	}
	if f.History {
		names = append(names, "history")
	}
	if f.Evidence {
		names = append(names, "evidence")
	}
	if f.Collusion {
		names = append(names, "collusion")
	}
	if f.MultipleClaims {
		names = append(names, "multiple_claims")
	}
	if f.Inconsistency {
		names = append(names, "inconsistency")
	}
	return names
}
