package engine

import "strconv"

// This file is the engine's outward telemetry boundary. The engine never
// delivers anything itself: alert sinks and metric exporters are host
// concerns, fed from the shapes below.

// Alert pairs a record with the comparison that crossed a threshold.
type Alert struct {
	Key    RequestKey
	Name   string
	Result RegressionResult
}

// AlertSink receives alerts the host decides to deliver. Implemented by
// messaging/notification integrations outside the engine.
type AlertSink interface {
	Notify(alert Alert)
}

// CollectAlerts extracts every comparison whose alert level is not none.
// The host hands these to its sink; the engine does not dispatch.
func CollectAlerts(records []*RequestRecord) []Alert {
	var out []Alert
	for _, rec := range records {
		cmp := rec.BaselineComparison
		if cmp == nil || cmp.AlertLevel == AlertNone {
			continue
		}
		out = append(out, Alert{
			Key:    rec.Key,
			Name:   rec.Raw.Name,
			Result: *cmp,
		})
	}
	return out
}

// MetricPoint is one (name, value, tags) triple for an external telemetry
// backend. The engine exposes raw numbers; formatting and delivery belong
// to the exporter.
type MetricPoint struct {
	Name  string
	Value float64
	Tags  map[string]string
}

// ExportMetricPoints flattens the derived fields of each record into metric
// points tagged with the record's identity.
func ExportMetricPoints(records []*RequestRecord) []MetricPoint {
	out := make([]MetricPoint, 0, len(records)*7)
	for _, rec := range records {
		tags := map[string]string{
			"url":         rec.Raw.Name,
			"type":        rec.Raw.InitiatorType,
			"third_party": strconv.FormatBool(rec.ThirdParty),
		}

		out = append(out,
			MetricPoint{Name: "request.duration", Value: rec.Timing.Total, Tags: tags},
			MetricPoint{Name: "request.dns", Value: rec.Timing.DNSLookup, Tags: tags},
			MetricPoint{Name: "request.tcp", Value: rec.Timing.TCPHandshake, Tags: tags},
			MetricPoint{Name: "request.ssl", Value: rec.Timing.SSLHandshake, Tags: tags},
			MetricPoint{Name: "request.ttfb", Value: rec.Timing.TimeToFirstByte, Tags: tags},
			MetricPoint{Name: "request.download", Value: rec.Timing.Download, Tags: tags},
			MetricPoint{Name: "request.transfer_size", Value: float64(rec.Raw.TransferSize), Tags: tags},
		)
	}
	return out
}
