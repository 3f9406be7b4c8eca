// Package ticket renders the QR code printed on an attendee's ticket. The code
// payload is the attendee id, which is what the scanner resolves.
package ticket

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// PNG encodes attendeeID with medium error recovery.
func PNG(attendeeID string, size int) ([]byte, error) {
	attendeeID = strings.TrimSpace(attendeeID)
	if attendeeID == "" {
		return nil, fmt.Errorf("ticket: empty attendee id")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(attendeeID, qrcode.Medium, size)
}
