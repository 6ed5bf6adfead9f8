// Package browser jumps the user to the booking site once places open up.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// BookingURL points at the booking directory, anchored on one refuge's
// listing when an id is given.
func BookingURL(directoryURL string, refugeID int) string {
	if refugeID <= 0 {
		return directoryURL
	}
	return fmt.Sprintf("%s#refuge_i%d", directoryURL, refugeID)
}

// Open launches the system browser on rawURL. Only http and https are
// accepted, the rest of the URL is passed to the launcher untouched.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid booking URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q scheme", u.Scheme)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		// rundll32 avoids cmd /c start shell interpretation of the URL.
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
