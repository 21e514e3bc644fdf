package internal

type SourceType string

const (
	SourceEmailText SourceType = "email_text"
	SourceEmailHTML SourceType = "email_html"
	SourcePDF       SourceType = "pdf"
	SourceExcel     SourceType = "excel"
	SourceWord      SourceType = "word"
	SourceImage     SourceType = "image"
)

// PositionToken is one word placed on a page. Y grows downward.
type PositionToken struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

type ParsedRow struct {
	Raw          string   `json:"raw"`
	Cells        []string `json:"cells"`
	LineNumber   int      `json:"lineNumber"`
	Continuation bool     `json:"continuation,omitempty"`
}

type Table [][]string

// ContentKind names the representation a NormalizedDocument is processed through.
type ContentKind string

const (
	ContentPositions ContentKind = "positions"
	ContentTables    ContentKind = "tables"
	ContentRows      ContentKind = "rows"
	ContentRawText   ContentKind = "raw_text"
	ContentEmpty     ContentKind = "empty"
)

// NormalizedDocument is what every source extractor produces. It is not
// modified once built.
type NormalizedDocument struct {
	Source       SourceType      `json:"source"`
	Name         string          `json:"name"`
	HasPositions bool            `json:"hasPositions"`
	Tokens       []PositionToken `json:"tokens,omitempty"`
	Rows         []ParsedRow     `json:"rows,omitempty"`
	Tables       []Table         `json:"tables,omitempty"`
	RawText      string          `json:"rawText,omitempty"`
}

func (d NormalizedDocument) Content() ContentKind {
	switch {
	case d.HasPositions && len(d.Tokens) > 0:
		return ContentPositions
	case len(d.Tables) > 0:
		return ContentTables
	case len(d.Rows) > 0:
		return ContentRows
	case d.RawText != "":
		return ContentRawText
	default:
		return ContentEmpty
	}
}

func (d NormalizedDocument) Empty() bool {
	return d.Content() == ContentEmpty
}

type ColumnType int

const (
	ColLineNumber ColumnType = iota
	ColQuantity
	ColUnitOfMeasure
	ColItemCode
	ColPartNumber
	ColBrand
	ColModel
	ColDescription
	ColSpecification
	ColRemark
	ColSerial
	ColAssetTag
	ColDrawingRef
	ColUnitPrice
	ColTotalPrice
	ColCurrency
	ColDeliveryDate
	ColDeliveryLocation
	ColUnknown
)

var columnTypeNames = [...]string{
	ColLineNumber:       "line_number",
	ColQuantity:         "quantity",
	ColUnitOfMeasure:    "unit_of_measure",
	ColItemCode:         "item_code",
	ColPartNumber:       "part_number",
	ColBrand:            "brand",
	ColModel:            "model",
	ColDescription:      "description",
	ColSpecification:    "specification",
	ColRemark:           "remark",
	ColSerial:           "serial",
	ColAssetTag:         "asset_tag",
	ColDrawingRef:       "drawing_ref",
	ColUnitPrice:        "unit_price",
	ColTotalPrice:       "total_price",
	ColCurrency:         "currency",
	ColDeliveryDate:     "delivery_date",
	ColDeliveryLocation: "delivery_location",
	ColUnknown:          "unknown",
}

func (c ColumnType) String() string {
	if c < 0 || int(c) >= len(columnTypeNames) {
		return "unknown"
	}
	return columnTypeNames[c]
}

func (c ColumnType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseColumnType maps a name produced by String back to its type.
func ParseColumnType(name string) (ColumnType, bool) {
	for i, n := range columnTypeNames {
		if n == name {
			return ColumnType(i), true
		}
	}
	return ColUnknown, false
}

// AllColumnTypes lists every known type except ColUnknown.
func AllColumnTypes() []ColumnType {
	out := make([]ColumnType, 0, int(ColUnknown))
	for c := ColLineNumber; c < ColUnknown; c++ {
		out = append(out, c)
	}
	return out
}

type XRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r XRange) Center() float64 {
	return (r.Min + r.Max) / 2
}

type DetectedColumn struct {
	Type   ColumnType `json:"type"`
	Header string     `json:"header"`
	Score  float64    `json:"score"`
	XRange *XRange    `json:"xRange,omitempty"`
	Index  int        `json:"index"`
}

type HeaderDetection struct {
	Found           bool             `json:"found"`
	Score           float64          `json:"score"`
	LineIndex       int              `json:"lineIndex"`
	Columns         []DetectedColumn `json:"columns"`
	RawText         string           `json:"rawText"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	IsFormMetadata  bool             `json:"isFormMetadata,omitempty"`
	// Span is 2 when the header was recognised across two physical lines.
	Span int `json:"span"`
	// TokenAligned is set when header cells came from splitting a line on
	// whitespace, so data rows must be aligned token by token.
	TokenAligned bool `json:"tokenAligned,omitempty"`
	// TableIndex is the table the header was found in, or -1.
	TableIndex int `json:"tableIndex"`
}

func NotFoundHeader() HeaderDetection {
	return HeaderDetection{Found: false, Score: 0, LineIndex: -1, Span: 1, TableIndex: -1}
}

func (h HeaderDetection) Has(t ColumnType) bool {
	for _, c := range h.Columns {
		if c.Type == t {
			return true
		}
	}
	return false
}

// ColumnTypes returns the distinct types in header order.
func (h HeaderDetection) ColumnTypes() []ColumnType {
	seen := map[ColumnType]struct{}{}
	out := make([]ColumnType, 0, len(h.Columns))
	for _, c := range h.Columns {
		if _, ok := seen[c.Type]; ok {
			continue
		}
		seen[c.Type] = struct{}{}
		out = append(out, c.Type)
	}
	return out
}

const DefaultUnit = "pcs"

type PriceRequestItem struct {
	Description       string   `json:"description"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	InternalCode      *string  `json:"internalCode,omitempty"`
	SupplierCode      *string  `json:"supplierCode,omitempty"`
	Reference         *string  `json:"reference,omitempty"`
	Brand             *string  `json:"brand,omitempty"`
	Model             *string  `json:"model,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
	SerialNumber      *string  `json:"serialNumber,omitempty"`
	LineNumber        *int     `json:"lineNumber,omitempty"`
	SourceLine        int      `json:"sourceLine,omitempty"`
	UnitPrice         *float64 `json:"unitPrice,omitempty"`
	TotalPrice        *float64 `json:"totalPrice,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	DeliveryDate      *string  `json:"deliveryDate,omitempty"`
	NeedsManualReview bool     `json:"needsManualReview,omitempty"`
	IsEstimated       bool     `json:"isEstimated,omitempty"`
	Confidence        float64  `json:"confidence"`
	Source            string   `json:"source,omitempty"`
}

// HasAnyCode reports whether the item carries an internal code, a supplier
// code or a reference.
func (it PriceRequestItem) HasAnyCode() bool {
	return nonEmpty(it.InternalCode) || nonEmpty(it.SupplierCode) || nonEmpty(it.Reference)
}

func nonEmpty(v *string) bool {
	return v != nil && *v != ""
}

type FilterReason string

const (
	ReasonLikelySignature FilterReason = "likely_signature"
	ReasonTinyIcon        FilterReason = "tiny_icon"
	ReasonTrackingPixel   FilterReason = "tracking_pixel"
	ReasonLogo            FilterReason = "logo"
	ReasonSocialIcon      FilterReason = "social_icon"
	ReasonBanner          FilterReason = "banner"
	ReasonAspectRatio     FilterReason = "aspect_ratio"
	ReasonLowOCRValue     FilterReason = "low_ocr_value"
	ReasonFooterPosition  FilterReason = "footer_position"
	ReasonCIDPattern      FilterReason = "cid_pattern"
	ReasonHexIDPattern    FilterReason = "hex_id_pattern"
)

type FilteredImage struct {
	Name          string       `json:"name"`
	Reason        FilterReason `json:"reason"`
	Width         *int         `json:"width,omitempty"`
	Height        *int         `json:"height,omitempty"`
	Size          *int         `json:"size,omitempty"`
	ExtractedText string       `json:"extractedText,omitempty"`
}

type ImagePosition string

const (
	PositionUnknown ImagePosition = ""
	PositionHeader  ImagePosition = "header"
	PositionBody    ImagePosition = "body"
	PositionFooter  ImagePosition = "footer"
)

type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
	Size        int
	Inline      bool
	Position    ImagePosition
	// Context is the text around the image reference in the HTML body.
	Context string
}

type Email struct {
	MessageID   string
	Subject     string
	From        string
	Text        string
	HTML        string
	Attachments []Attachment
}

func (e Email) AttachmentNames() []string {
	out := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		out = append(out, a.Filename)
	}
	return out
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
