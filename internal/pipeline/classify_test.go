package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
)

func TestClassifyRequest(t *testing.T) {
	email := internal.Email{
		Subject: "RFQ 2024-118 hydraulic spares",
		Text:    "Dear supplier,\nplease quote the following:\n10 pcs hydraulic filter\n4 pcs oil seal\n",
		Attachments: []internal.Attachment{
			{Filename: "list.xlsx"},
		},
	}
	c := Classify(email)
	require.Equal(t, LabelRequest, c.Label)
	require.InDelta(t, 0.95, c.Score, 0.001)
	require.Contains(t, c.Reasons, "qty_lines:2")
	require.Contains(t, c.Reasons, "attachment:list.xlsx")
}

func TestClassifyOffer(t *testing.T) {
	c := Classify(internal.Email{
		Subject: "Our quotation Q-5531",
		Text:    "Please find attached our offer and proforma.",
	})
	require.Equal(t, LabelOffer, c.Label)
	require.InDelta(t, 0.5, c.Score, 0.001)
}

func TestClassifyDecline(t *testing.T) {
	c := Classify(internal.Email{
		Subject: "Regret, unable to quote",
		Text:    "We regret that we are unable to quote this time.",
	})
	require.Equal(t, LabelDecline, c.Label)
}

func TestClassifyWeakSignalIsUnknown(t *testing.T) {
	c := Classify(internal.Email{Subject: "Hello", Text: "See you tomorrow"})
	require.Equal(t, LabelUnknown, c.Label)
	require.Zero(t, c.Score)

	c = Classify(internal.Email{Subject: "Re: RFQ", Text: "Thanks"})
	require.Equal(t, LabelUnknown, c.Label)
	require.InDelta(t, 0.2, c.Score, 0.001)
}

func TestFindReference(t *testing.T) {
	require.Equal(t, "RFQ-2024-118", FindReference("Fwd: RFQ-2024-118 spares"))
	require.Equal(t, "DP2024/55", FindReference("Demande de prix n° DP2024/55"))
	require.Equal(t, "", FindReference("Hello", "no number here"))
	require.Equal(t, "AB-778", FindReference("Your ref: ab-778"))
	require.Equal(t, "RFQ 9912", FindReference("Your ref: AB-778", "RFQ 9912"))
}

func TestMetadataLines(t *testing.T) {
	for _, line := range []string{
		"Best regards,",
		"Tel: +33 1 23 45 67 89",
		"Page 2 of 3",
		"Total HT: 1 234,00 €",
		"From: buyer@example.com",
		"-----Original Message-----",
		"IBAN FR76 3000 6000 0112 3456 7890 189",
		"",
	} {
		require.True(t, IsMetadataLine(line), line)
	}
	for _, line := range []string{"10 pcs bearing 6204", "Hydraulic pump 4 pcs", "Total station tripod 2 pcs"} {
		require.False(t, IsMetadataLine(line), line)
	}
}

func TestTermsLines(t *testing.T) {
	require.True(t, IsTermsLine("Payment terms: 30 days"))
	require.True(t, IsTermsLine("Conditions générales de vente"))
	require.False(t, IsTermsLine("10 pcs bearing"))
}

func TestFormMetadataHits(t *testing.T) {
	require.Equal(t, 4, formMetadataHits("Fleet Number / Activity code / GL Code / WO"))
	require.Equal(t, 0, formMetadataHits("Line Qty UOM Description"))
}
