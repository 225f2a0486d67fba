// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SOFIAObservatory/sospex/fits"
)

// ErrUnsupportedCube is returned when the producing instrument of a file cannot be determined
var ErrUnsupportedCube = errors.New("cube: not a supported spectral cube")

// Instrument identifies the instrument a cube comes from
type Instrument int

const (
	FIFILS Instrument = iota + 1
	GREAT
	PACS
	FORCAST
)

var instrumentNames = map[Instrument]string{
	FIFILS:  "FIFI-LS",
	GREAT:   "GREAT",
	PACS:    "PACS",
	FORCAST: "FORCAST",
}

func (i Instrument) String() string {
	if s, ok := instrumentNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Instrument(%d)", int(i))
}

// ParseInstrument maps an INSTRUME value onto an Instrument
func ParseInstrument(s string) (Instrument, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range instrumentNames {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: instrument %q", ErrUnsupportedCube, s)
}

// DetectInstrument reads the instrument from a primary header
// INSTRUME is used when present; otherwise ORIGIN identifies GILDAS-produced GREAT cubes.
func DetectInstrument(h fits.Header) (Instrument, error) {
	if s, err := h.String("INSTRUME"); err == nil {
		return ParseInstrument(s)
	}
	origin, err := h.String("ORIGIN")
	if err != nil {
		return 0, fmt.Errorf("%w: neither INSTRUME nor ORIGIN in header", ErrUnsupportedCube)
	}
	if strings.TrimSpace(origin) == GildasOrigin {
		return GREAT, nil
	}
	return 0, fmt.Errorf("%w: origin %q", ErrUnsupportedCube, origin)
}
