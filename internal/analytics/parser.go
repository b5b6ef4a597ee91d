// Package analytics ingests CDN access-log lines and turns each one
// into a click on the visited link. Ingestion is lossy by policy: a
// line that cannot be parsed or counted is logged and dropped, never
// allowed to stall the stream.
package analytics

import (
	"fmt"
	"strings"
)

// Visit is one parsed access-log entry. The upstream format is
// tab-separated: timestamp, source IP, status code, then the request
// path whose first segment is the link id.
type Visit struct {
	Timestamp  string
	SourceIP   string
	StatusCode string
	LinkID     string
}

// ParseVisit parses one delimited log line, e.g.
// "1739035776.180\t24.18.218.96\t302\t/k120oizrul\n". The link id is
// the request path stripped of its leading slash and any surrounding
// whitespace.
func ParseVisit(line string) (Visit, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 {
		return Visit{}, fmt.Errorf("expected 4 tab-separated fields, got %d", len(fields))
	}

	linkID := strings.TrimPrefix(strings.TrimSpace(fields[3]), "/")
	if linkID == "" {
		return Visit{}, fmt.Errorf("log line carries no link id: %q", fields[3])
	}

	return Visit{
		Timestamp:  fields[0],
		SourceIP:   fields[1],
		StatusCode: fields[2],
		LinkID:     linkID,
	}, nil
}
