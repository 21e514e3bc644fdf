package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

const (
	LabelRequest = "request"
	LabelOffer   = "offer"
	LabelDecline = "decline"
	LabelPending = "pending"
	LabelUnknown = "unknown"

	classifyThreshold = 0.45
)

type Classification struct {
	Label   string   `json:"label"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

var classifyKeywords = map[string][]string{
	LabelRequest: {
		"rfq", "request for quotation", "request for quote", "quotation request", "please quote", "kindly quote",
		"price request", "enquiry", "inquiry", "purchase requisition", "demande de prix", "demande de devis",
		"demande de cotation", "appel d'offre", "consultation", "merci de nous faire parvenir", "veuillez nous coter",
		"besoin", "qty", "quantity", "quantité",
	},
	LabelOffer: {
		"our offer", "our quotation", "please find attached our", "proforma", "pro forma", "price offer",
		"notre offre", "notre devis", "ci-joint notre", "offre de prix", "facture proforma",
	},
	LabelDecline: {
		"regret", "unable to quote", "cannot quote", "can not quote", "not able to offer", "no longer available",
		"we decline", "ne pouvons pas", "pas en mesure", "regrettons", "ne sommes pas en mesure",
	},
	LabelPending: {
		"will revert", "get back to you", "under review", "in progress", "we are checking", "en cours",
		"nous revenons vers vous", "reviendrons vers vous", "en cours de traitement",
	},
}

var classifyOrder = []string{LabelRequest, LabelOffer, LabelDecline, LabelPending}

var documentExts = map[string]bool{".xlsx": true, ".xls": true, ".pdf": true, ".docx": true, ".csv": true}

// Classify scores what kind of procurement mail this is. The result is a
// signal for the parse log and the processing status; extraction runs
// regardless.
func Classify(email internal.Email) Classification {
	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Text)
	html := strings.ToLower(email.HTML)

	scores := map[string]float64{}
	reasons := map[string][]string{}
	for _, label := range classifyOrder {
		for _, kw := range classifyKeywords[label] {
			if strings.Contains(subject, kw) {
				scores[label] += 0.2
				reasons[label] = append(reasons[label], "subject:"+kw)
			}
			if strings.Contains(body, kw) || strings.Contains(html, kw) {
				scores[label] += 0.1
				reasons[label] = append(reasons[label], "body:"+kw)
			}
		}
	}

	if hits := countQtyLines(email.Text); hits >= 2 {
		scores[LabelRequest] += 0.4
		reasons[LabelRequest] = append(reasons[LabelRequest], fmt.Sprintf("qty_lines:%d", hits))
	} else if hits == 1 {
		scores[LabelRequest] += 0.2
		reasons[LabelRequest] = append(reasons[LabelRequest], "qty_lines:1")
	}

	for _, name := range email.AttachmentNames() {
		if documentExts[strings.ToLower(filepath.Ext(name))] {
			scores[LabelRequest] += 0.25
			reasons[LabelRequest] = append(reasons[LabelRequest], "attachment:"+name)
			break
		}
	}
	if strings.Contains(html, "<table") {
		scores[LabelRequest] += 0.25
		reasons[LabelRequest] = append(reasons[LabelRequest], "html_table")
	}

	best := Classification{Label: LabelUnknown}
	for _, label := range classifyOrder {
		s := min(1, scores[label])
		if s > best.Score {
			best = Classification{Label: label, Score: s, Reasons: reasons[label]}
		}
	}
	if best.Score < classifyThreshold {
		best.Label = LabelUnknown
	}
	return best
}

// countQtyLines counts lines carrying a quantity followed by a unit.
func countQtyLines(text string) int {
	count := 0
	for _, line := range util.SplitLines(text) {
		if util.ParseQty(line).Unit != nil {
			count++
		}
	}
	return count
}
