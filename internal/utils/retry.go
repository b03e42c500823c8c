package utils

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Retry calls fn until it succeeds or maxAttempts is reached, sleeping delay
// between attempts.
func Retry(log *logrus.Entry, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			log.Errorf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(delay)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
