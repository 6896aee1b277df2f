package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one ordered slice of a document body materialized as a node,
// as exposed to the editor buffer.
type Segment struct {
	SegmentID string
	NodeID    string
	Title     string
	Body      string
	Order     int
}

// ParsedSegment is one segment recovered from an editor buffer.
type ParsedSegment struct {
	SegmentID string
	NodeID    string
	Order     int
	Title     string
	Focus     bool
	Body      string
}

var (
	segmentStartPattern = regexp.MustCompile(`^<!-- forest:segment start segment_id=(\S+) node_id=(\S+) order=(\d+) title="([^"]*)"( focus=true)? -->$`)
	segmentEndPattern   = regexp.MustCompile(`^<!-- forest:segment end segment_id=(\S+) -->$`)
)

// escapeAttr applies the buffer format's HTML-escape rules:
// & must be escaped before " so unescaping can safely reverse the order.
func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

func unescapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

func normalizeLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// BuildBuffer renders segments (already in order) as the full-document
// editor buffer. focusSegmentID, if non-empty, marks one
// segment with focus=true.
func BuildBuffer(title, rootNodeID string, segments []Segment, focusSegmentID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Forest document: %s\n", title)
	fmt.Fprintf(&b, "# root: %s\n", rootNodeID)
	fmt.Fprintf(&b, "# segments: %d\n", len(segments))
	b.WriteString("# segment_id/node_id are identity; do not edit them.\n")
	b.WriteString("# Reordering segments in this buffer reorders them on save.\n\n")

	for _, seg := range segments {
		b.WriteString("<!-- forest:segment start segment_id=")
		b.WriteString(seg.SegmentID)
		b.WriteString(" node_id=")
		b.WriteString(seg.NodeID)
		fmt.Fprintf(&b, " order=%d", seg.Order)
		b.WriteString(" title=\"")
		b.WriteString(escapeAttr(seg.Title))
		b.WriteString("\"")
		if focusSegmentID != "" && seg.SegmentID == focusSegmentID {
			b.WriteString(" focus=true")
		}
		b.WriteString(" -->\n")

		body := normalizeLF(seg.Body)
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}

		b.WriteString("<!-- forest:segment end segment_id=")
		b.WriteString(seg.SegmentID)
		b.WriteString(" -->\n\n")
	}

	return b.String()
}

// ParseBuffer recovers the ordered segment list from a full-document editor
// buffer. Leading `#`/blank
// lines are skipped, every start marker must carry segment_id and node_id,
// a mismatched segment_id between start and end is an error, and each
// segment_id may appear at most once. The caller (Session.SaveBuffer)
// checks the parsed segment_id set against the document's expected set.
func ParseBuffer(raw string) ([]ParsedSegment, error) {
	lines := strings.Split(normalizeLF(raw), "\n")

	var segments []ParsedSegment
	seen := make(map[string]bool)

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		break
	}

	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}

		m := segmentStartPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, fmt.Errorf("expected segment start marker, got: %s", lines[i])
		}
		segID, nodeID, orderStr, title, focusFlag := m[1], m[2], m[3], m[4], m[5] != ""
		if seen[segID] {
			return nil, fmt.Errorf("segment %s appears more than once", segID)
		}
		order, err := strconv.Atoi(orderStr)
		if err != nil {
			return nil, fmt.Errorf("segment %s: invalid order %q", segID, orderStr)
		}
		i++

		var bodyLines []string
		endSegID := ""
		found := false
		for i < len(lines) {
			if em := segmentEndPattern.FindStringSubmatch(strings.TrimSpace(lines[i])); em != nil {
				endSegID = em[1]
				found = true
				i++
				break
			}
			bodyLines = append(bodyLines, lines[i])
			i++
		}
		if !found {
			return nil, fmt.Errorf("segment %s: missing end marker", segID)
		}
		if endSegID != segID {
			return nil, fmt.Errorf("segment %s: end marker segment_id %q does not match start", segID, endSegID)
		}

		seen[segID] = true
		body := strings.TrimRight(strings.Join(bodyLines, "\n"), "\n")
		segments = append(segments, ParsedSegment{
			SegmentID: segID,
			NodeID:    nodeID,
			Order:     order,
			Title:     unescapeAttr(title),
			Focus:     focusFlag,
			Body:      body,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments found in buffer")
	}
	return segments, nil
}
