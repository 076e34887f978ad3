package middleware

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	maxAuditHeaderLen  = 512
	auditInsertTimeout = 5 * time.Second
)

// AuditLogger persists one wallet-protocol call record.
type AuditLogger interface {
	InsertWalletAuditLog(ctx context.Context, method, path, headers string, status int) error
}

// WalletAudit records every wallet-protocol call (method, path,
// truncated headers, outcome). Observability only: the insert runs off
// the request path and its failures are swallowed.
func WalletAudit(logger AuditLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		// Copy out of the fasthttp buffers before leaving the handler.
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		headers := truncateHeaders(c.GetReqHeaders())

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditInsertTimeout)
			defer cancel()
			if insertErr := logger.InsertWalletAuditLog(ctx, method, path, headers, status); insertErr != nil {
				log.Printf("[Wallet Audit] failed to record %s %s: %v", method, path, insertErr)
			}
		}()

		return err
	}
}

// truncateHeaders flattens request headers into one line bounded by
// maxAuditHeaderLen. Token values stay out of long-term storage beyond
// that cap.
func truncateHeaders(headers map[string][]string) string {
	var b strings.Builder
	for name, values := range headers {
		if b.Len() > maxAuditHeaderLen {
			break
		}
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(values, ","))
		b.WriteString("; ")
	}
	s := b.String()
	if len(s) > maxAuditHeaderLen {
		s = s[:maxAuditHeaderLen]
	}
	return s
}
