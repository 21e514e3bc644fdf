package pipeline

import (
	"regexp"
	"strings"

	"rfqingest/internal/util"
)

// referencePatterns match the shapes request numbers take, most specific
// first. The first submatch is the reference.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b((?:RFQ|RFP|RFI|PR|PO|DA|DP)[-/ ]?\d[\w\-/]*)`),
	regexp.MustCompile(`(?i)\b(?:rfq|rfp|request for quotation|purchase requisition|requisition|purchase order|enquiry|inquiry)\s*(?:n[o°º]\.?|number|nr\.?|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`),
	regexp.MustCompile(`(?i)(?:demande de prix|demande d'achat|devis|consultation|appel d'offres?|bon de commande)\s*(?:n[o°º]\.?)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`),
	regexp.MustCompile(`(?i)\b(?:our ref|your ref|notre r[ée]f|votre r[ée]f|reference|r[ée]f[ée]rence|ref|r[ée]f)\.?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`),
}

// FindReference returns the first request number found in texts, searched
// in the order given. References without a digit are ignored.
func FindReference(texts ...string) string {
	for _, re := range referencePatterns {
		for _, text := range texts {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				ref := strings.TrimRight(m[1], "-/")
				if util.HasDigit(ref) && len(ref) >= 3 {
					return strings.ToUpper(ref)
				}
			}
		}
	}
	return ""
}
