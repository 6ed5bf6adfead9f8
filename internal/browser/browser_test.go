package browser

import "testing"

func TestBookingURL(t *testing.T) {
	base := "https://example.com/en-gb/book"

	if got := BookingURL(base, 32378); got != base+"#refuge_i32378" {
		t.Errorf("BookingURL() = %q, want refuge anchor", got)
	}
	if got := BookingURL(base, 0); got != base {
		t.Errorf("BookingURL(0) = %q, want bare directory URL", got)
	}
}

func TestOpenRejectsNonHTTP(t *testing.T) {
	for _, bad := range []string{"file:///etc/passwd", "javascript:alert(1)", "ftp://example.com", ""} {
		if err := Open(bad); err == nil {
			t.Errorf("Open(%q): expected error, got nil", bad)
		}
	}
}
