package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
// The zero UUID (platform-wide operations) is rendered as "platform".
func TenantID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.String("tenant_id", "platform")
	}
	return slog.String("tenant_id", id.String())
}

// CustomerID records the customer identifier under the key "customer_id".
func CustomerID(id uuid.UUID) slog.Attr {
	return slog.String("customer_id", id.String())
}

// Component records the analytics component name under the key "component".
// If name is empty, it returns an empty Attr.
func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}
