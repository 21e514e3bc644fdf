package imagefilter

import (
	"regexp"

	"rfqingest/internal"
)

type namePattern struct {
	re     *regexp.Regexp
	reason internal.FilterReason
}

// namePatterns is checked in order against the attachment filename.
var namePatterns = []namePattern{
	{regexp.MustCompile(`(?i)(signature|signat|email[-_]?sig|[-_.]sig[-_.])`), internal.ReasonLikelySignature},
	{regexp.MustCompile(`(?i)(facebook|twitter|linkedin|instagram|youtube|whatsapp|tiktok|social)`), internal.ReasonSocialIcon},
	{regexp.MustCompile(`(?i)logo`), internal.ReasonLogo},
	{regexp.MustCompile(`(?i)banner`), internal.ReasonBanner},
	{regexp.MustCompile(`(?i)(favicon|icon|\.ico$)`), internal.ReasonTinyIcon},
	{regexp.MustCompile(`(?i)(tracking|pixel|spacer|beacon|blank\.gif|1x1)`), internal.ReasonTrackingPixel},
	{regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.\w+$`), internal.ReasonHexIDPattern},
	{regexp.MustCompile(`(?i)^[0-9a-f]{16,}\.\w+$`), internal.ReasonHexIDPattern},
	{regexp.MustCompile(`(?i)^(image\d{3}|~wrl\d+|att\d{5})\.(png|jpe?g|gif|bmp)$`), internal.ReasonCIDPattern},
	{regexp.MustCompile(`(?i)\.(tmp|dat)$`), internal.ReasonCIDPattern},
}

// signaturePhrases are looked for in the text surrounding an inline image.
var signaturePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(best|kind|warm)?\s*regards\b`),
	regexp.MustCompile(`(?i)\bsincerely\b`),
	regexp.MustCompile(`(?i)\bcordialement\b|\bsalutations\b`),
	regexp.MustCompile(`(?i)\bsent from my\b|\benvoy[ée] de mon\b`),
	regexp.MustCompile(`(?i)\b(tel|t[ée]l|phone|mobile|mob|fax|gsm)\s*[.:]`),
	regexp.MustCompile(`(?i)\b(linkedin|facebook|twitter|instagram)\.com\b`),
}

var cidHexRe = regexp.MustCompile(`(?i)^(ii_|part\d+\.)?[0-9a-f]{8,}([._][0-9a-f]{4,})*$`)
