// Copyright 2014 Shahriar Iravanian (siravan@svtsim.com).  All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package fits

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrKeyNotFound is returned by the typed Header lookups for a missing key
	ErrKeyNotFound = errors.New("fits: key not found")
	// ErrKeyType is returned when a key exists but holds a value of another type
	ErrKeyType = errors.New("fits: unexpected key type")
)

// Header holds the key/value pairs of a FITS header
// Values are int, float64, string, bool or complex128. Commentary cards and keys without a value map to nil.
type Header map[string]interface{}

// Has reports whether key is present with a value
func (h Header) Has(key string) bool {
	v, ok := h[key]
	return ok && v != nil
}

// Get returns the raw value of key
func (h Header) Get(key string) (interface{}, error) {
	v, ok := h[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, nil
}

// String returns the value of a string-valued key
func (h Header) String(key string) (string, error) {
	v, err := h.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not string", ErrKeyType, key, v)
	}
	return s, nil
}

// Float returns the value of a numeric key as float64
// Integer cards are accepted since writers are free to drop the decimal point of whole numbers.
func (h Header) Float(key string) (float64, error) {
	v, err := h.Get(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%w: %s is %T, not a number", ErrKeyType, key, v)
}

// Int returns the value of an integer key
func (h Header) Int(key string) (int, error) {
	v, err := h.Get(key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, not int", ErrKeyType, key, v)
	}
	return n, nil
}

// Bool returns the value of a logical key
func (h Header) Bool(key string) (bool, error) {
	v, err := h.Get(key)
	if err != nil {
		return false, err
	}
	t, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, not bool", ErrKeyType, key, v)
	}
	return t, nil
}

// Nth returns a string resulted from concatenation of prefix and n in string form
// it is a stateless helper function
func Nth(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

// processString is utilized by NewHeader to process string-type values in the header
// it uses a 3-state machine to process double single quotes
func processString(s string) (string, error) {
	var buf bytes.Buffer

	state := 0
	for _, char := range s {
		quote := char == '\''
		switch state {
		case 0:
			if !quote {
				return "", fmt.Errorf("fits: string does not start with a quote")
			}
			state = 1
		case 1:
			if quote {
				state = 2
			} else {
				buf.WriteRune(char)
			}
		case 2:
			if !quote {
				return strings.TrimRight(buf.String(), " "), nil
			}
			buf.WriteRune(char)
			state = 1
		}
	}
	if state == 2 { // closing quote at the very end of the card
		return strings.TrimRight(buf.String(), " "), nil
	}
	return "", fmt.Errorf("fits: string ends prematurely")
}

// parseValue converts the value field of a card (everything after "= ") into a Go value
// nil is returned for empty values
func parseValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if s[0] == '\'' {
		v, err := processString(s)
		if err != nil {
			return nil
		}
		return v
	}

	// the comment can only be stripped after strings, '/' is valid inside a quoted value
	if j := strings.IndexByte(s, '/'); j != -1 {
		s = strings.TrimSpace(s[:j])
	}
	if s == "" {
		return nil
	}

	switch first := s[0]; {
	case first == 'T':
		return true
	case first == 'F':
		return false
	case first == '(':
		var x, y float64
		if _, err := fmt.Sscanf(s, "(%g,%g)", &x, &y); err != nil {
			return nil
		}
		return complex(x, y)
	case (first >= '0' && first <= '9') || first == '+' || first == '-' || first == '.':
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return int(n)
		}
		s = strings.NewReplacer("D", "E", "d", "e").Replace(s) // converts D type floats to E type
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x
		}
	}
	return nil
}

// NewHeader reads and processes the next header from the reader stream
// its main function is to populate Keys and setup Naxis
func (b *Reader) NewHeader() (h *Unit, err error) {
	keys := make(Header, 50)
	h = &Unit{Keys: keys}

	for {
		buf, err := b.NextPage()
		if err != nil {
			return h, err
		}

		for i := 0; i < 36; i++ { // each FITS header block is comprised of up to 36 80-byte lines
			s := string(buf[i*80 : (i+1)*80])
			key := strings.TrimSpace(s[:8])
			if key == "" {
				continue
			}
			if s[8:10] != "= " { // note that the standard is strict regarding the position of the '=' sign
				keys[key] = nil
				continue
			}
			keys[key] = parseValue(s[10:])
		}

		if _, ends := keys["END"]; ends {
			break
		}
	}

	if n, err := keys.Int("NAXIS"); err == nil {
		h.Naxis = make([]int, n)
		for i := range h.Naxis {
			h.Naxis[i], _ = keys.Int(Nth("NAXIS", i+1))
		}
	}
	return h, nil
}
