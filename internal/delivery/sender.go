// Package delivery sends one-time codes to phone numbers.
package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

// Sender delivers a plaintext code out of band.
type Sender interface {
	Deliver(ctx context.Context, phone, code string) error
}

// FormatMessage renders the SMS body for code.
func FormatMessage(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your Swasth Saathi verification code is %s. It expires in %d minutes. Do not share it with anyone.", code, minutes)
}

// LogSender stands in for a real provider in development. It records that a
// code was sent but never logs the code itself.
type LogSender struct{}

// NewLogSender creates a dry-run sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Deliver(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("INFO: [sms dry-run] one-time code (%d digits) for %s", len(code), utils.MaskPhone(phone))
	return nil
}
