package qr

import domainQR "csy/internal/domain/qr"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordIssued(domainQR.QRType)             {}
func (n *NoopMetricsCollector) RecordRedemption(domainQR.QRType, string) {}
func (n *NoopMetricsCollector) RecordValidation(string)                  {}
