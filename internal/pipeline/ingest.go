package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"rfqingest/internal"
	"rfqingest/internal/brands"
	"rfqingest/internal/extract"
	"rfqingest/internal/imagefilter"
	"rfqingest/internal/mailmsg"
	"rfqingest/internal/parselog"
	"rfqingest/internal/util"
)

// ItemParser is an optional second opinion, such as a language model, used
// only for documents the heuristics got nothing from.
type ItemParser interface {
	ParseItems(ctx context.Context, doc internal.NormalizedDocument) ([]internal.PriceRequestItem, error)
}

// BrandSource hands out the current brand snapshot. *brands.Store
// implements it.
type BrandSource interface {
	Snapshot() *brands.Snapshot
}

type Result struct {
	RequestID         string                      `json:"requestId"`
	Items             []internal.PriceRequestItem `json:"items"`
	ReferenceNumber   string                      `json:"referenceNumber,omitempty"`
	Classification    Classification              `json:"classification"`
	Log               parselog.ParseLog           `json:"log"`
	NeedsVerification bool                        `json:"needsVerification"`
	Warnings          []string                    `json:"warnings,omitempty"`
}

const maxNestedDepth = 3

type Ingestor struct {
	parser    *Parser
	extractor *extract.Extractor
	images    *imagefilter.Filter
	brands    BrandSource
	items     ItemParser
	logger    *slog.Logger
	newID     func() string
}

type IngestOption func(*Ingestor)

func WithBrands(b BrandSource) IngestOption {
	return func(i *Ingestor) { i.brands = b }
}

func WithItemParser(p ItemParser) IngestOption {
	return func(i *Ingestor) { i.items = p }
}

func WithLogger(l *slog.Logger) IngestOption {
	return func(i *Ingestor) { i.logger = l }
}

func NewIngestor(parser *Parser, extractor *extract.Extractor, images *imagefilter.Filter, opts ...IngestOption) *Ingestor {
	i := &Ingestor{parser: parser, extractor: extractor, images: images, logger: slog.Default(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(i)
	}
	if i.parser == nil {
		i.parser = NewParser(nil, DefaultOptions(), i.logger)
	}
	if i.extractor == nil {
		i.extractor = extract.New(nil, extract.Options{}, i.logger)
	}
	if i.images == nil {
		i.images = imagefilter.New(imagefilter.DefaultConfig(), i.logger)
	}
	return i
}

// run is the state of one ingestion call.
type run struct {
	ctx      context.Context
	log      *parselog.Builder
	items    []internal.PriceRequestItem
	texts    []string
	methods  []string
	lines    int
	verify   bool
	warnings []string
}

func (r *run) warn(msg string) {
	r.warnings = append(r.warnings, msg)
	r.log.AddWarning(msg)
}

func (r *run) fail(msg string) {
	r.log.AddError(msg)
	r.verify = true
}

func (i *Ingestor) newRun(ctx context.Context) *run {
	return &run{ctx: ctx, log: parselog.New(i.newID())}
}

// IngestEmail extracts the items of one email: its body and every
// attachment, one after the other. It always returns a Result; failures
// end up in the log.
func (i *Ingestor) IngestEmail(ctx context.Context, email internal.Email) Result {
	r := i.newRun(ctx)
	cls := Classify(email)
	r.log.SetClassification(parselog.Classification(cls))
	i.ingestEmail(r, email, 0)
	res := i.finish(r, email.Subject, email.Text)
	res.Classification = cls
	return res
}

// IngestDocument extracts items from a single file. Raw emails are decoded
// and handled as by IngestEmail.
func (i *Ingestor) IngestDocument(ctx context.Context, name, contentType string, data []byte) Result {
	if mailmsg.IsMessage(name, contentType) {
		email, err := mailmsg.Parse(data)
		if err == nil {
			return i.IngestEmail(ctx, email)
		}
		r := i.newRun(ctx)
		r.log.AddSource(name)
		r.fail(fmt.Sprintf("%s: %v", name, err))
		return i.finish(r, "", "")
	}
	r := i.newRun(ctx)
	i.ingestAttachment(r, internal.Attachment{Filename: name, ContentType: contentType, Content: data, Size: len(data)}, 0)
	res := i.finish(r, "", "")
	res.Classification = Classification{Label: LabelUnknown}
	return res
}

func (i *Ingestor) ingestEmail(r *run, email internal.Email, depth int) {
	if email.Subject != "" {
		r.texts = append(r.texts, email.Subject)
	}
	i.guard(r, "body", func() { i.ingestBody(r, email) })
	for _, a := range email.Attachments {
		i.ingestAttachment(r, a, depth)
	}
}

// ingestBody parses the richer body first: the HTML when it has tables,
// else the plain text. The other one is tried when the first gives no
// items.
func (i *Ingestor) ingestBody(r *run, email internal.Email) {
	var docs []internal.NormalizedDocument
	if strings.TrimSpace(email.HTML) != "" {
		doc, err := extract.EmailHTML("body", email.HTML)
		if err != nil {
			r.warn(fmt.Sprintf("body html: %v", err))
		} else if !doc.Empty() {
			docs = append(docs, doc)
		}
	}
	if strings.TrimSpace(email.Text) != "" {
		doc := extract.EmailText("body", email.Text)
		if !doc.Empty() {
			if len(docs) == 1 && len(docs[0].Tables) == 0 {
				docs = []internal.NormalizedDocument{doc, docs[0]}
			} else {
				docs = append(docs, doc)
			}
		}
	}
	if len(docs) == 0 {
		return
	}
	r.log.AddSource("body")
	for n, doc := range docs {
		if n > 0 {
			r.log.AddPath("body:secondary")
		}
		if i.ingestDoc(r, "body", doc) > 0 {
			return
		}
	}
}

func (i *Ingestor) ingestAttachment(r *run, a internal.Attachment, depth int) {
	r.log.AddSource(a.Filename)
	i.guard(r, a.Filename, func() {
		switch {
		case mailmsg.IsMessage(a.Filename, a.ContentType):
			if depth+1 > maxNestedDepth {
				r.warn(fmt.Sprintf("%s: nested message too deep, skipped", a.Filename))
				return
			}
			nested, err := mailmsg.Parse(a.Content)
			if err != nil {
				r.fail(fmt.Sprintf("%s: %v", a.Filename, err))
				return
			}
			r.log.AddInputType("email")
			i.ingestEmail(r, nested, depth+1)
		case imagefilter.IsImage(a.Filename, a.ContentType):
			i.ingestImage(r, a)
		default:
			i.ingestFile(r, a)
		}
	})
}

func (i *Ingestor) ingestFile(r *run, a internal.Attachment) {
	res, err := i.extractor.Extract(r.ctx, a.Filename, a.ContentType, a.Content)
	i.noteExtraction(r, a.Filename, res)
	switch {
	case errors.Is(err, extract.ErrUnsupported):
		r.warn(fmt.Sprintf("%s: skipped, unsupported type", a.Filename))
		return
	case errors.Is(err, extract.ErrEmptyDocument):
		r.warn(fmt.Sprintf("%s: no extractable content", a.Filename))
		return
	case err != nil:
		r.fail(err.Error())
		return
	}
	i.ingestDoc(r, a.Filename, res.Doc)
}

// ingestImage filters noise images before paying for OCR, then drops
// images whose OCR text is too thin to hold items.
func (i *Ingestor) ingestImage(r *run, a internal.Attachment) {
	info := imagefilter.InfoFromAttachment(a)
	d := i.images.Classify(info)
	if d.Filtered {
		r.log.AddFilteredImage(d.Record(info))
		i.logger.Debug("image filtered", "file", a.Filename, "reason", d.Reason, "confidence", d.Confidence)
		return
	}
	res, err := i.extractor.Extract(r.ctx, a.Filename, a.ContentType, a.Content)
	i.noteExtraction(r, a.Filename, res)
	if err != nil && !errors.Is(err, extract.ErrEmptyDocument) {
		r.warn(fmt.Sprintf("%s: %v", a.Filename, err))
		return
	}
	text := res.Doc.RawText
	if err != nil || i.images.LowOCRValue(text) {
		rec := d.Record(info)
		rec.Reason = internal.ReasonLowOCRValue
		rec.ExtractedText = text
		r.log.AddFilteredImage(rec)
		return
	}
	r.log.AddProcessedImage(a.Filename)
	i.ingestDoc(r, a.Filename, res.Doc)
}

func (i *Ingestor) noteExtraction(r *run, name string, res extract.Result) {
	if res.OCRUsed {
		r.log.MarkOCRUsed()
		r.verify = true
	}
	for _, w := range res.Warnings {
		r.warn(w)
	}
	if res.Method != "" {
		r.log.AddPath(name + ":" + res.Method)
	}
}

// ingestDoc runs header detection and item extraction on one document and
// records what happened. It returns the number of draft items found.
func (i *Ingestor) ingestDoc(r *run, name string, doc internal.NormalizedDocument) int {
	r.log.AddInputType(string(doc.Source))
	ex := i.parser.ExtractItems(doc)
	r.lines += ex.Lines
	r.log.SetHeader(parselog.HeaderFromDetection(name, ex.Header))
	for _, z := range ex.Zones {
		r.log.SetZone(parselog.ZoneInfo{Source: name, Start: z.Start, End: z.End, Method: z.Method})
	}
	if ex.Fallback.Triggered {
		r.log.SetFallback(parselog.FallbackInfo{
			Source:      name,
			Triggered:   true,
			Reason:      ex.Fallback.Reason,
			ItemsBefore: ex.Fallback.ItemsBefore,
			ItemsAfter:  ex.Fallback.ItemsAfter,
		})
	}
	r.log.AddPath(fmt.Sprintf("%s:%s:%s", name, ex.Strategy, ex.Method))
	r.methods = appendOnce(r.methods, ex.Method)
	if text := documentText(doc); text != "" {
		r.texts = append(r.texts, text)
	}

	items := ex.Items
	if len(items) == 0 && i.items != nil {
		parsed, err := i.items.ParseItems(r.ctx, doc)
		if err != nil {
			r.warn(fmt.Sprintf("%s: item parser: %v", name, err))
		} else if parsed = sanitize(parsed, name); len(parsed) > 0 {
			items = parsed
			r.log.AddPath(name + ":item_parser")
			r.methods = appendOnce(r.methods, "item_parser")
		}
	}
	r.items = append(r.items, items...)
	return len(items)
}

// sanitize enforces item invariants on items that did not come from the
// heuristics.
func sanitize(items []internal.PriceRequestItem, source string) []internal.PriceRequestItem {
	out := make([]internal.PriceRequestItem, 0, len(items))
	for _, it := range items {
		it.Description = util.CollapseSpaces(it.Description)
		if utf8.RuneCountInString(it.Description) < 3 {
			continue
		}
		if it.Quantity <= 0 || it.Quantity > util.MaxQuantity {
			it.Quantity = 1
			it.IsEstimated = true
		}
		if it.Unit == "" {
			it.Unit = internal.DefaultUnit
		} else {
			it.Unit = util.NormalizeUnit(it.Unit)
		}
		if it.Source == "" {
			it.Source = source
		}
		out = append(out, it)
	}
	return out
}

func documentText(doc internal.NormalizedDocument) string {
	switch {
	case doc.RawText != "":
		return doc.RawText
	case len(doc.Tables) > 0:
		return extract.TableText(doc.Tables)
	}
	var b strings.Builder
	for _, row := range doc.Rows {
		b.WriteString(row.Raw)
		b.WriteByte('\n')
	}
	return b.String()
}

// guard turns a panic inside one document into a logged error so the other
// documents of the email still get processed.
func (i *Ingestor) guard(r *run, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			i.logger.Error("document processing panicked", "source", name, "panic", rec)
			r.fail(fmt.Sprintf("%s: %v", name, rec))
		}
	}()
	fn()
}

func (i *Ingestor) brandFinder() BrandFinder {
	if i.brands != nil {
		if snap := i.brands.Snapshot(); snap != nil {
			return snap
		}
	}
	return brands.Builtin()
}

func (i *Ingestor) finish(r *run, subject, body string) Result {
	post := i.parser.PostProcess(r.items, i.brandFinder())
	ref := FindReference(append([]string{subject, body}, r.texts...)...)
	verify := r.verify || post.NeedsVerification
	if len(post.Items) == 0 {
		r.warn("no items extracted")
		verify = true
	}

	log := r.log.
		SetExtractedLines(r.lines).
		SetItemCount(len(post.Items)).
		SetContinuations(post.Continuations).
		SetConfidence(post.Confidence).
		SetMethod(strings.Join(r.methods, "+")).
		SetReference(ref).
		SetNeedsVerification(verify).
		Build()

	i.logger.Info("ingestion finished",
		"request_id", log.RequestID,
		"items", len(post.Items),
		"reference", ref,
		"needs_verification", verify,
		"duration_ms", log.DurationMs,
	)
	return Result{
		RequestID:         log.RequestID,
		Items:             post.Items,
		ReferenceNumber:   ref,
		Log:               log,
		NeedsVerification: verify,
		Warnings:          log.Warnings,
	}
}
