// Copyright 2014 Shahriar Iravanian (siravan@svtsim.com).  All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package fits

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field returns a FieldFunc corresponding to col
// If col is int, the col'th field is returned (note: col is 0 based, so col=1 means TFORM2)
// If col a string, the field with TTYPE equal to col (ignoring case) is returned
//
// Note: this function returns an accessor function, that needs to be called to obtain the actual cell value
// For example, assume h is a table. One of its column is named "ID" of type "J" (int32)
// To obtain the value of the cell located at the intersection of the third row (row=2) and column "ID", we write
//
//  fn := h.Field("ID")
//  val := fn(2).(int32)
//
// An unknown or unsupported column yields an accessor that always returns nil.
func (h *Unit) Field(col interface{}) FieldFunc {
	if n, ok := h.column(col); ok {
		return h.list[n]
	}
	return func(int) interface{} {
		return nil
	}
}

// column resolves col (index or name) into a 0-based column index
func (h *Unit) column(col interface{}) (int, bool) {
	switch c := col.(type) {
	case int:
		if c >= 0 && c < len(h.list) && h.list[c] != nil {
			return c, true
		}
	case string:
		n, ok := h.columns[strings.ToUpper(strings.TrimSpace(c))]
		if ok && h.list[n] != nil {
			return n, true
		}
	}
	return 0, false
}

// Columns returns the TTYPE of every column, in order
func (h *Unit) Columns() []string {
	names := make([]string, len(h.list))
	for i := range names {
		names[i], _ = h.Keys.String(Nth("TTYPE", i+1))
	}
	return names
}

// Rows returns the number of rows of a table HDU
func (h *Unit) Rows() int {
	if !h.HasTable() || len(h.Naxis) < 2 {
		return 0
	}
	return h.Naxis[1]
}

// Dim returns the shape of a cell of column col, as written in TDIMn (fastest axis first)
// Columns without TDIMn have the shape [repeat].
func (h *Unit) Dim(col interface{}) []int {
	if n, ok := h.column(col); ok {
		return append([]int(nil), h.dims[n]...)
	}
	return nil
}

// Format returns a formatted string based on the given col and row and TDISP of the col
// col can be an int or a string (same as Field)
// The return value is a string, which is obtained by
//      1. Finding the FieldFunc based on col
//      2. Running the FieldFunc by passing row as an argument
//      3. Applying format to the result
//
func (h *Unit) Format(col interface{}, row int) string {
	n, ok := h.column(col)
	if !ok || h.unsupported[n] != nil {
		return ""
	}
	fn := h.list[n]
	disp, _ := h.Keys.String(Nth("TDISP", n+1))

	format := "%v" // default format

	if disp != "" {
		var code rune
		w, m := 14, -1
		d := disp

		// accounts for ENw.d and ESw.d formats
		if len(d) > 1 && (d[1] == 'N' || d[1] == 'S') {
			d = d[:1] + d[2:] // the standard allows to disregard this secondary format characters
		}

		fmt.Sscanf(d, "%c%d.%d", &code, &w, &m)

		switch code {
		case 'A':
			format = fmt.Sprintf("%%%d.%ds", w, w) // Aw -> %ws
		case 'I':
			format = fmt.Sprintf("%%%dd", w) // Iw -> %wd
		case 'B':
			format = fmt.Sprintf("%%%db", w) // Bw -> %wb, binary
		case 'O':
			format = fmt.Sprintf("%%%do", w) // Ow -> %wo, octal
		case 'Z':
			format = fmt.Sprintf("%%%dX", w) // Zw -> %wX, hexadecimal
		case 'F', 'D', 'E', 'G':
			verb := map[rune]byte{'F': 'f', 'D': 'f', 'E': 'e', 'G': 'g'}[code]
			if m != -1 {
				format = fmt.Sprintf("%%%d.%d%c", w, m, verb) // Fw.d -> %w.df
			} else {
				format = fmt.Sprintf("%%%d%c", w, verb) // Fw -> %wf
			}
		}
	}

	return fmt.Sprintf(format, fn(row))
}

// FloatColumn returns the numeric column col as float64, one flattened cell per row
// dims is the cell shape (see Dim).
func (h *Unit) FloatColumn(col interface{}) (rows [][]float64, dims []int, err error) {
	n, ok := h.column(col)
	if !ok {
		return nil, nil, fmt.Errorf("fits: HDU %s has no column %v", h.Name(), col)
	}
	if err := h.unsupported[n]; err != nil {
		return nil, nil, fmt.Errorf("fits: column %v of %s: %w", col, h.Name(), err)
	}
	fn := h.list[n]
	rows = make([][]float64, h.Rows())
	for row := range rows {
		rows[row], err = toFloats(fn(row))
		if err != nil {
			return nil, nil, fmt.Errorf("fits: column %v of %s: %w", col, h.Name(), err)
		}
	}
	return rows, h.Dim(n), nil
}

// floatsOf widens a numeric slice
func floatsOf[T number](p []T) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = float64(v)
	}
	return out
}

// toFloats converts a cell value into a float64 slice
func toFloats(v interface{}) ([]float64, error) {
	switch x := v.(type) {
	case float64:
		return []float64{x}, nil
	case float32:
		return []float64{float64(x)}, nil
	case int:
		return []float64{float64(x)}, nil
	case uint8:
		return []float64{float64(x)}, nil
	case int16:
		return []float64{float64(x)}, nil
	case int32:
		return []float64{float64(x)}, nil
	case int64:
		return []float64{float64(x)}, nil
	case []float64:
		return append([]float64(nil), x...), nil
	case []float32:
		return floatsOf(x), nil
	case []uint8:
		return floatsOf(x), nil
	case []int16:
		return floatsOf(x), nil
	case []int32:
		return floatsOf(x), nil
	case []int64:
		return floatsOf(x), nil
	}
	return nil, fmt.Errorf("non numeric cell of type %T", v)
}

// cell builds the decoder of a binary table cell made of repeat elements of width bytes
// With the exception of code='A' (string-type), the decoder returns an atomic value for repeat=1 and a slice otherwise
func cell[T any](repeat, width int, conv func([]byte) T) func([]byte) interface{} {
	if repeat == 1 {
		return func(p []byte) interface{} {
			return conv(p[:width])
		}
	}
	return func(p []byte) interface{} {
		out := make([]T, repeat)
		for i := range out {
			out[i] = conv(p[i*width : (i+1)*width])
		}
		return out
	}
}

// accessorBin generates the accessor function for a field in a binary table (XTENSION=BINTABLE)
// For binary tables, TFORM is like rT, where r is the repeat and T is the type code
// Variable arrays (type P and Q) and packed bits (type X) get an accessor returning nil and an ErrUnsupportedColumn error
// col is the byte index of the value of the field from the beginning of each record and is advanced past the field
func (h *Unit) accessorBin(code byte, repeat int, col *int) (fn FieldFunc, disp string, err error) {
	var f func([]byte) interface{}
	width := 1

	switch code {
	case 'A':
		n := repeat
		f = func(p []byte) interface{} { // For T='A', the result is always a string, even if repeat is equal to 1
			return strings.TrimRight(string(p[:n]), " \x00")
		}
		width, repeat = n, 1
		disp = fmt.Sprintf("A%d", width)
	case 'B':
		f = cell(repeat, 1, func(p []byte) uint8 { return p[0] })
		disp = "I3" // disp is the default display formatting string to be used if the corresponding TDISP is missing
	case 'L':
		f = cell(repeat, 1, func(p []byte) bool { return p[0] == 'T' })
		disp = "L1"
	case 'I':
		width = 2
		f = cell(repeat, width, func(p []byte) int16 { return int16(binary.BigEndian.Uint16(p)) })
		disp = "I6"
	case 'J':
		width = 4
		f = cell(repeat, width, func(p []byte) int32 { return int32(binary.BigEndian.Uint32(p)) })
		disp = "I11"
	case 'K':
		width = 8
		f = cell(repeat, width, func(p []byte) int64 { return int64(binary.BigEndian.Uint64(p)) })
		disp = "I20"
	case 'E':
		width = 4
		f = cell(repeat, width, func(p []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(p)) })
		disp = "F14.7"
	case 'D':
		width = 8
		f = cell(repeat, width, func(p []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(p)) })
		disp = "F14.7"
	case 'C':
		width = 8
		f = cell(repeat, width, func(p []byte) complex64 {
			return complex(math.Float32frombits(binary.BigEndian.Uint32(p)), math.Float32frombits(binary.BigEndian.Uint32(p[4:])))
		})
		disp = "F14.7"
	case 'M':
		width = 16
		f = cell(repeat, width, func(p []byte) complex128 {
			return complex(math.Float64frombits(binary.BigEndian.Uint64(p)), math.Float64frombits(binary.BigEndian.Uint64(p[8:])))
		})
		disp = "F14.7"
	case 'P', 'Q', 'X':
		// array descriptors and bit fields keep their room in the row but are not decoded
		switch code {
		case 'P':
			*col += 8 * repeat
		case 'Q':
			*col += 16 * repeat
		case 'X':
			*col += (repeat + 7) / 8
		}
		fn = func(int) interface{} {
			return nil
		}
		return fn, "", fmt.Errorf("%w: binary table form %c", ErrUnsupportedColumn, code)
	default:
		return nil, "", fmt.Errorf("fits: binary table form %c is not supported", code)
	}

	c := *col
	*col += width * repeat
	data := h.Data.([]byte)

	// fn is the actual FieldFunc
	// the cell bytes are located from the record size and row, decoding does not share any state
	fn = func(row int) interface{} {
		if row < 0 || row >= h.Naxis[1] { // invalid row number (note Naxis[1] is NAXIS2 in the header equal to the number of rows)
			return nil
		}
		start := row*h.Naxis[0] + c
		return f(data[start : start+width*repeat])
	}

	return fn, disp, nil
}

// accessorText generates the accessor function for a field in a text table (XTENSION=TABLE)
// For text tables, TFORM is like Tw or Tw.d (T=code and w=repeat); col is the 1-based TBCOL of the field
func (h *Unit) accessorText(code byte, repeat int, col int) (fn FieldFunc, disp string, err error) {
	c := col - 1
	var f func(string) interface{}

	switch code {
	case 'A':
		f = func(s string) interface{} {
			return s
		}
		disp = fmt.Sprintf("A%d", repeat)
	case 'I':
		f = func(s string) interface{} {
			n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			return int(n)
		}
		disp = fmt.Sprintf("I%d", repeat)
	case 'D', 'E', 'F':
		f = func(s string) interface{} {
			s = strings.Replace(strings.TrimSpace(s), "D", "E", 1)
			x, _ := strconv.ParseFloat(s, 64)
			return x
		}
		disp = "F14.7"
	default:
		return nil, "", fmt.Errorf("fits: unsupported TFORM %c in an ASCII table", code)
	}

	data := h.Data.([]byte)

	// same as fn function in accessorBin
	fn = func(row int) interface{} {
		if row < 0 || row >= h.Naxis[1] {
			return nil
		}
		start := row*h.Naxis[0] + c
		return f(string(data[start : start+repeat]))
	}

	return fn, disp, nil
}

// parseDim parses a TDIMn value such as "(1,42)"
func parseDim(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("fits: invalid TDIM %q", s)
		}
		dims[i] = n
	}
	return dims, nil
}

// loadTable processes a table (text or binary) data section
// it allocates and reads data, skips the heap if present,
// and for each field calls accessorBin or accessorText to obtain the corresponding accessor function
func (h *Unit) loadTable(b *Reader, isBinary bool) error {
	tfields, err := h.Keys.Int("TFIELDS") // # of fields
	if err != nil {
		return fmt.Errorf("fits: table without TFIELDS: %w", err)
	}
	h.list = make([]FieldFunc, tfields)
	h.dims = make([][]int, tfields)
	h.columns = make(map[string]int, tfields)
	h.unsupported = make(map[int]error)

	data := make([]byte, h.Naxis[0]*h.Naxis[1])
	if _, err := b.Read(data); err != nil {
		return fmt.Errorf("fits: reading table %s: %w", h.Name(), err)
	}
	h.Data = data
	if pcount, _ := h.Keys.Int("PCOUNT"); pcount > 0 {
		if err := b.Skip(pcount); err != nil {
			return err
		}
	}

	var col int
	for i := 0; i < tfields; i++ {
		var fn FieldFunc
		var disp string
		form, err := h.Keys.String(Nth("TFORM", i+1))
		if err != nil {
			return err
		}
		form = strings.TrimSpace(form)

		if isBinary { // BINTABLE
			j := strings.IndexAny(form, "ABCDEIJKLMPQX")
			if j == -1 {
				return fmt.Errorf("fits: TFORM %q has invalid format (binary)", form)
			}
			repeat := 1
			if j > 0 {
				repeat, err = strconv.Atoi(form[:j])
				if err != nil {
					return fmt.Errorf("fits: TFORM %q has invalid repeat", form)
				}
			}
			if repeat == 0 {
				continue
			}
			fn, disp, err = h.accessorBin(form[j], repeat, &col)
			if errors.Is(err, ErrUnsupportedColumn) {
				h.unsupported[i] = err
			} else if err != nil {
				return err
			}
			h.dims[i] = []int{repeat}
			if tdim, err := h.Keys.String(Nth("TDIM", i+1)); err == nil {
				if h.dims[i], err = parseDim(tdim); err != nil {
					return err
				}
			}
		} else { // TABLE
			j := strings.Index(form, ".")
			if j == -1 {
				j = len(form)
			}
			w, err := strconv.Atoi(form[1:j])
			if err != nil {
				return fmt.Errorf("fits: TFORM %q has invalid width", form)
			}
			tbcol, err := h.Keys.Int(Nth("TBCOL", i+1))
			if err != nil {
				return err
			}
			fn, disp, err = h.accessorText(form[0], w, tbcol)
			if err != nil {
				return err
			}
			h.dims[i] = []int{1}
		}

		h.list[i] = fn
		if name, err := h.Keys.String(Nth("TTYPE", i+1)); err == nil {
			h.columns[strings.ToUpper(strings.TrimSpace(name))] = i
		} else {
			h.Keys[Nth("TTYPE", i+1)] = Nth("COL", i+1) // default name given to fields without a corresponding TTYPE
		}

		if !h.Keys.Has(Nth("TDISP", i+1)) {
			h.Keys[Nth("TDISP", i+1)] = disp // if TDISP is missing, the default disp is added to the header as a TDISP
		}
	}

	return nil
}
