package edm

// Two whole-buffer checksum algorithms are in use. Instruments running
// firmware older than the per-model threshold XOR-fold every byte; newer
// firmware stores the two's-complement negation of the byte sum. The same
// trailing byte is ambiguous without knowing the firmware, so validation
// always accepts either algorithm and only the try order follows the version.

// LegacyChecksum XOR-folds b into a single byte.
func LegacyChecksum(b []byte) byte {
	var cs byte
	for _, v := range b {
		cs ^= v
	}
	return cs
}

// CurrentChecksum returns the negated 8-bit sum of b.
func CurrentChecksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return -sum
}

// Scheme describes where a model switched from the legacy to the current
// checksum algorithm.
type Scheme struct {
	Model uint16
	// Threshold is the first firmware version (x100) writing current checksums.
	Threshold uint16
	// LegacyLabel is the three-character version text written into the $C
	// record when a file is downgraded.
	LegacyLabel string
}

// schemeTable is searched by model; the final entry is the fallback.
// The EDM-760 versions independently and its threshold is a best guess.
var schemeTable = []Scheme{
	{Model: 760, Threshold: 140, LegacyLabel: "139"},
	{Model: 0, Threshold: 300, LegacyLabel: "299"},
}

// SchemeFor returns the checksum scheme entry for the given instrument model.
func SchemeFor(model uint16) Scheme {
	for _, s := range schemeTable[:len(schemeTable)-1] {
		if s.Model == model {
			return s
		}
	}
	return schemeTable[len(schemeTable)-1]
}

// UsesCurrent reports whether firmware writes current-scheme checksums.
func (s Scheme) UsesCurrent(firmware uint16) bool {
	return firmware >= s.Threshold
}

// Validate reports whether want matches b under either algorithm. The
// algorithm the firmware is expected to use is tried first.
func (s Scheme) Validate(firmware uint16, b []byte, want byte) bool {
	if s.UsesCurrent(firmware) {
		return CurrentChecksum(b) == want || LegacyChecksum(b) == want
	}
	return LegacyChecksum(b) == want || CurrentChecksum(b) == want
}
