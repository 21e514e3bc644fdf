package pipeline

import (
	"regexp"
	"strings"

	"rfqingest/internal/util"
)

// metadataPatterns match lines that never describe an item.
var metadataPatterns = []*regexp.Regexp{
	// mail headers, also inside forwarded blocks
	regexp.MustCompile(`(?i)^(from|to|cc|bcc|sent|date|subject|reply-to|de|à|envoyé|envoye|objet)\s*:`),
	regexp.MustCompile(`(?i)^-{2,}\s*(original message|forwarded message|message d'origine|message transféré)`),
	regexp.MustCompile(`(?i)^(on|le)\s.{4,80}\s(wrote|a écrit)\s*:?$`),
	// day of week
	regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday|lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche)\b`),
	// legal and registration boilerplate
	regexp.MustCompile(`(?i)\b(siret|siren|rcs|n°\s*tva|tva intracom\w*|vat\s*(no|number|reg\w*)|company reg\w*|registered office|capital social|share capital|iban|code ape|naf)\b|\b(bic|swift)\s*:`),
	// totals
	regexp.MustCompile(`(?i)^(sub\s*-?\s*total|grand total|total|montant total|net total|total ht|total ttc|tva|vat)\b\W*[\d\s.,€$£%]*\w{0,3}$`),
	// page markers
	regexp.MustCompile(`(?i)^page\s*\d+(\s*(of|/|sur|de)\s*\d+)?$`),
	regexp.MustCompile(`^\d+\s*/\s*\d+$`),
	// signature block
	regexp.MustCompile(`(?i)^(best regards|kind regards|regards|warm regards|sincerely|yours faithfully|yours sincerely|thanks|thank you|many thanks|cordialement|bien cordialement|salutations|merci|sent from)\b`),
	regexp.MustCompile(`(?i)^(tel|tél|phone|mobile|mob|fax|gsm|cell|whatsapp)\.?\s*[:.+(]?\s*[+\d(]`),
	regexp.MustCompile(`(?i)^(e-?mail|courriel|web|website|site web)\s*:`),
	regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`),
	regexp.MustCompile(`(?i)^[\w.+-]+@[\w-]+\.[\w.-]+$`),
	regexp.MustCompile(`^-{2,}\s*$`),
	regexp.MustCompile(`^[_=*~]{3,}$`),
}

// IsMetadataLine reports whether a line is mail, legal, total, page or
// signature noise.
func IsMetadataLine(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return true
	}
	for _, re := range metadataPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// formVocabulary names fields of requisition forms that surround item
// tables but are not part of them.
var formVocabulary = regexp.MustCompile(`\b(fleet( number| no)?|activity code|gl code|gl account|g l( code)?|wo|work order|cost cent(?:er|re)|centre de cout|account( code| number| no)?|budget code|project code|charge code|department|requested by|approved by|requisitioner|demandeur|imputation)\b`)

// formMetadataHits counts distinct form field names in a line.
func formMetadataHits(line string) int {
	found := formVocabulary.FindAllString(util.NormalizeKey(line), -1)
	seen := map[string]struct{}{}
	for _, f := range found {
		seen[f] = struct{}{}
	}
	return len(seen)
}

var termsPattern = regexp.MustCompile(`(?i)^(terms( and| &)? conditions|general conditions|terms of (payment|delivery)|payment terms|delivery terms|conditions g[ée]n[ée]rales|conditions de (paiement|livraison|vente)|modalit[ée]s de paiement|validit[ée] de l'offre|sub\s*-?\s*total|grand total|total ht|total ttc)\b`)

// IsTermsLine reports whether a line opens the terms section that follows
// an item table.
func IsTermsLine(line string) bool {
	return termsPattern.MatchString(strings.TrimSpace(line))
}
