package edm

import "math/bits"

// Features is the 32-bit configuration bitset stored in the $C record and
// repeated, possibly different, in every flight header.
//
//	-m-d fpai r2to eeee eeee eccc cccc cc-b
//
// Bit assignments for CLD, MAP, RPM and IAT are inferred from sample files.
type Features uint32

const (
	FeatBAT Features = 1 << 0
	FeatC1  Features = 1 << 2
	FeatC2  Features = 1 << 3
	FeatC3  Features = 1 << 4
	FeatC4  Features = 1 << 5
	FeatC5  Features = 1 << 6
	FeatC6  Features = 1 << 7
	FeatC7  Features = 1 << 8
	FeatC8  Features = 1 << 9
	FeatC9  Features = 1 << 10
	FeatE1  Features = 1 << 11
	FeatE2  Features = 1 << 12
	FeatE3  Features = 1 << 13
	FeatE4  Features = 1 << 14
	FeatE5  Features = 1 << 15
	FeatE6  Features = 1 << 16
	FeatE7  Features = 1 << 17
	FeatE8  Features = 1 << 18
	FeatE9  Features = 1 << 19
	FeatOIL Features = 1 << 20
	FeatT1  Features = 1 << 21
	FeatT2  Features = 1 << 22
	FeatCDT Features = 1 << 23 // also carburetor temperature
	FeatIAT Features = 1 << 24
	FeatOAT Features = 1 << 25
	FeatRPM Features = 1 << 26
	FeatFF  Features = 1 << 27
	FeatCLD Features = 1 << 28
	FeatMAP Features = 1 << 30

	// FeatUSD shares the fuel flow bit.
	FeatUSD = FeatFF
	// FeatDIF is present whenever there is more than one EGT.
	FeatDIF = FeatE1 | FeatE2
	// FeatHP needs every input of the horsepower calculation.
	FeatHP = FeatRPM | FeatMAP | FeatFF
	// FeatMARK uses the battery bit, which is always set in practice.
	FeatMARK Features = 1 << 0

	// FeatHighCylinders are cylinders 7-9, stored where a twin keeps its
	// second engine.
	FeatHighCylinders = FeatC7 | FeatC8 | FeatC9 | FeatE7 | FeatE8 | FeatE9
)

// MaxCylinders is the largest cylinder count an instrument reports per engine.
const MaxCylinders = 9

// cylinderShift is the bit position of the first cylinder (CHT) flag.
const cylinderShift = 2

// Has reports whether every bit of mask is set.
func (f Features) Has(mask Features) bool {
	return f&mask == mask
}

// Cylinders counts the contiguous run of cylinder bits starting at C1.
func (f Features) Cylinders() int {
	n := bits.TrailingZeros32(^uint32(f >> cylinderShift))
	if n > MaxCylinders {
		n = MaxCylinders
	}
	return n
}

// Config is the instrument configuration parsed from the $C record.
type Config struct {
	Model    uint16
	Flags    Features
	Unknown  uint16 // auxiliary flag word, meaning not known
	Firmware uint16 // version x100
}

// twinEngineModel is the only model recording two engines.
const twinEngineModel = 760

// Engines returns 2 for the twin-engine model and 1 otherwise.
func (c Config) Engines() int {
	if c.Model == twinEngineModel {
		return 2
	}
	return 1
}

// Scheme returns the checksum scheme entry for the configured model.
func (c Config) Scheme() Scheme {
	return SchemeFor(c.Model)
}

// CurrentChecksums reports whether the firmware writes current-scheme
// checksums.
func (c Config) CurrentChecksums() bool {
	return c.Scheme().UsesCurrent(c.Firmware)
}

// ValidChecksum validates b against want with the dual-try policy.
func (c Config) ValidChecksum(b []byte, want byte) bool {
	return c.Scheme().Validate(c.Firmware, b, want)
}
