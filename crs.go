package gridcube

import (
	"fmt"
	"strconv"
	"strings"
)

// CRS is an opaque handle for a coordinate reference system: an authority
// string (typically "EPSG:<code>", possibly a WKT blob) plus an optional
// numeric EPSG code. The core never interprets the projection itself; it only
// needs identity so it can decide between the exact affine path and the
// external-transform path.
type CRS struct {
	name string
	epsg int
}

// EPSG returns a CRS for the given EPSG code.
func EPSG(code int) *CRS {
	return &CRS{name: fmt.Sprintf("EPSG:%d", code), epsg: code}
}

// ParseCRS builds a CRS from a string. Strings of the form "EPSG:<code>"
// (case-insensitive) get their code extracted; anything else (WKT, PROJ
// strings) is kept as an opaque identity.
func ParseCRS(s string) *CRS {
	trimmed := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(strings.ToUpper(trimmed), "EPSG:"); ok {
		if code, err := strconv.Atoi(rest); err == nil && code > 0 {
			return EPSG(code)
		}
	}
	return &CRS{name: trimmed}
}

// Code returns the EPSG code and whether one is known.
func (c *CRS) Code() (int, bool) {
	if c == nil || c.epsg == 0 {
		return 0, false
	}
	return c.epsg, true
}

func (c *CRS) String() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Equal reports whether two CRS handles identify the same reference system.
// When both sides carry an EPSG code the comparison short-circuits on the
// codes; otherwise it falls back to the identity string. A nil CRS only
// equals another nil CRS.
func (c *CRS) Equal(o *CRS) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.epsg != 0 && o.epsg != 0 {
		return c.epsg == o.epsg
	}
	return c.name == o.name
}
