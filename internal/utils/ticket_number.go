package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateTicketNumber generates a ticket number in the format WZ-YYYYMMDD-XXXXXX
func GenerateTicketNumber(now time.Time) (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return fmt.Sprintf("WZ-%s-%s",
		now.UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(bytes)),
	), nil
}
