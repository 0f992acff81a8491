package metrics

import (
	"github.com/logflow/procmine/pkg/ingest"
	"github.com/logflow/procmine/pkg/mining"
)

// RecordExtraction exports the counters of an extraction result.
func RecordExtraction(e Exporter, res *ingest.Result, tags map[string]string) {
	if res == nil {
		return
	}
	t := withTag(tags, TagPolicy, res.Policy.String())
	e.Counter(ExtractRecordsTotal, int64(res.Records), t)
	e.Counter(ExtractMalformedTotal, int64(res.Malformed), t)
	e.Counter(ExtractSkippedTotal, int64(res.Skipped), t)
	e.Counter(ExtractTracesTotal, int64(res.Traces), t)
	e.Timer(ExtractDuration, res.Duration, t)
	e.Gauge(ExtractThroughput, res.Throughput(), t)
}

// RecordVariants exports the size of a variant report.
func RecordVariants(e Exporter, report *mining.VariantReport, tags map[string]string) {
	if report == nil {
		return
	}
	e.Counter(VariantsTotal, int64(len(report.Variants)), tags)
}

func withTag(tags map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for key, val := range tags {
		out[key] = val
	}
	out[k] = v
	return out
}
