package pipeline

import (
	"rfqingest/internal"
	"rfqingest/internal/util"
)

const (
	ZoneHeader       = "header"
	ZoneKeyword      = "keyword"
	ZoneHeuristic    = "heuristic"
	ZoneFullDocument = "full_document"
)

// Zone is a half-open row range [Start, End) holding item lines.
type Zone struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Method string `json:"method"`
	// Repeated is set when the zone was closed by the header occurring
	// again, typically on the next page.
	Repeated bool `json:"repeated,omitempty"`
}

func (z Zone) Len() int { return z.End - z.Start }

// DetectZone returns the first item zone of rows.
func (p *Parser) DetectZone(rows []internal.ParsedRow, h internal.HeaderDetection) Zone {
	if h.Found && h.LineIndex >= 0 {
		return zoneAfterHeader(rows, h, h.LineIndex+max(1, h.Span))
	}
	for i, row := range rows {
		if IsMetadataLine(row.Raw) {
			continue
		}
		if _, _, ok := matchLine(row.Raw); ok {
			z := Zone{Start: i, End: len(rows), Method: ZoneHeuristic}
			for j := i + 1; j < len(rows); j++ {
				if IsTermsLine(rows[j].Raw) {
					z.End = j
					break
				}
			}
			return z
		}
	}
	return Zone{Start: 0, End: len(rows), Method: ZoneFullDocument}
}

// DetectZones follows repeated headers: each repetition closes a zone and
// opens the next one. A terms line closes the last zone.
func (p *Parser) DetectZones(rows []internal.ParsedRow, h internal.HeaderDetection) []Zone {
	z := p.DetectZone(rows, h)
	zones := []Zone{z}
	for z.Repeated {
		z = zoneAfterHeader(rows, h, z.End+max(1, h.Span))
		zones = append(zones, z)
	}
	return zones
}

func zoneAfterHeader(rows []internal.ParsedRow, h internal.HeaderDetection, start int) Zone {
	start = min(start, len(rows))
	headerKey := util.NormalizeKey(rowText(rows[h.LineIndex]))
	for i := start; i < len(rows); i++ {
		if util.NormalizeKey(rowText(rows[i])) == headerKey {
			return Zone{Start: start, End: i, Method: ZoneHeader, Repeated: true}
		}
		if IsTermsLine(rows[i].Raw) {
			return Zone{Start: start, End: i, Method: ZoneKeyword}
		}
	}
	return Zone{Start: start, End: len(rows), Method: ZoneHeader}
}
