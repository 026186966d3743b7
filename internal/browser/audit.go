package browser

import (
	"log/slog"
	"time"
)

// sensitiveCommands are CDP methods whose dispatch is logged at Warn
// instead of Info, because they execute arbitrary script, mutate
// cookies/headers, or otherwise carry elevated risk.
var sensitiveCommands = map[string]bool{
	"Runtime.evaluate":                   true,
	"Runtime.callFunctionOn":             true,
	"Page.navigate":                      true,
	"Network.setCookie":                  true,
	"Network.deleteCookies":              true,
	"Network.setExtraHTTPHeaders":        true,
	"Storage.clearDataForOrigin":         true,
	"Input.dispatchKeyEvent":             true,
	"DOM.setAttributeValue":              true,
	"Page.setDocumentContent":            true,
	"Emulation.setUserAgentOverride":     true,
	"Security.setIgnoreCertErrors":       true,
	"Emulation.setDeviceMetricsOverride": true,
}

// cdpAuditLogger logs every dispatched CDP method, flagging the
// sensitive subset at Warn.
type cdpAuditLogger struct {
	logger *slog.Logger
}

func newCDPAuditLogger(logger *slog.Logger) *cdpAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &cdpAuditLogger{logger: logger.With("component", "cdp")}
}

func (l *cdpAuditLogger) logCommand(tabID string, method string) {
	if l == nil {
		return
	}
	attrs := []any{
		"tab", truncateID(tabID),
		"method", method,
		"ts", time.Now().Unix(),
	}
	if sensitiveCommands[method] {
		l.logger.Warn("cdp_sensitive_command", attrs...)
	} else {
		l.logger.Info("cdp_command", attrs...)
	}
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
