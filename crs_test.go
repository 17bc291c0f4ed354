package gridcube

import "testing"

func TestParseCRS(t *testing.T) {
	cases := []struct {
		in       string
		wantCode int
	}{
		{"EPSG:4326", 4326},
		{"epsg:3857", 3857},
		{" EPSG:32633 ", 32633},
		{"EPSG:abc", 0},
		{"+proj=utm +zone=33", 0},
	}
	for _, tc := range cases {
		c := ParseCRS(tc.in)
		code, ok := c.Code()
		if tc.wantCode == 0 {
			if ok {
				t.Errorf("ParseCRS(%q) unexpectedly resolved code %d", tc.in, code)
			}
			continue
		}
		if !ok || code != tc.wantCode {
			t.Errorf("ParseCRS(%q).Code() = %d, %v; want %d", tc.in, code, ok, tc.wantCode)
		}
	}
}

func TestCRSEqual(t *testing.T) {
	if !EPSG(4326).Equal(ParseCRS("epsg:4326")) {
		t.Error("EPSG code comparison failed")
	}
	if EPSG(4326).Equal(EPSG(3857)) {
		t.Error("different codes reported equal")
	}
	if !ParseCRS("+proj=utm +zone=33").Equal(ParseCRS("+proj=utm +zone=33")) {
		t.Error("identical opaque strings reported unequal")
	}

	var nilCRS *CRS
	if !nilCRS.Equal(nil) {
		t.Error("nil should equal nil")
	}
	if nilCRS.Equal(EPSG(4326)) || EPSG(4326).Equal(nil) {
		t.Error("nil should not equal a set CRS")
	}
}
