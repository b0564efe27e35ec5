package ocr

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig identifies a Google Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
	// CredentialsFile is a service account key. Empty uses application
	// default credentials (GOOGLE_APPLICATION_CREDENTIALS).
	CredentialsFile string `yaml:"credentials_file"`
}

// Validate reports a config that cannot name a processor.
func (c DocumentAIConfig) Validate() error {
	var missing []string
	if c.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if c.Location == "" {
		missing = append(missing, "location")
	}
	if c.ProcessorID == "" {
		missing = append(missing, "processor_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("documentai: missing %s: %w", strings.Join(missing, ", "), ErrInvalidConfig)
	}
	return nil
}

// ProcessorName is the resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAI sends each image to a Document AI processor as a one-page
// document. The gRPC client is safe for concurrent use.
type DocumentAI struct {
	name    string
	process func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)
	close   func() error
}

// NewDocumentAI dials the regional Document AI endpoint for cfg.Location.
func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig) (*DocumentAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocumentAI{
		name: cfg.ProcessorName(),
		process: func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
			return client.ProcessDocument(ctx, req)
		},
		close: client.Close,
	}, nil
}

func (d *DocumentAI) Name() string          { return "documentai" }
func (d *DocumentAI) Neural() bool          { return true }
func (d *DocumentAI) ConcurrencySafe() bool { return true }

// Recognize uploads in.Image as PNG and reads back the processor's lines.
func (d *DocumentAI) Recognize(ctx context.Context, in Input) (Result, error) {
	data, err := encodePNG(in.Image)
	if err != nil {
		return Result{}, err
	}
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
	}
	resp, err := d.process(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to process document: %w", err)
	}
	return resultFromDocument(in.ID, resp.GetDocument()), nil
}

// Close closes the gRPC connection.
func (d *DocumentAI) Close() error {
	if d.close == nil {
		return nil
	}
	err := d.close()
	d.close = nil
	return err
}

func resultFromDocument(id string, doc *documentaipb.Document) Result {
	if doc == nil {
		return Result{InputID: id}
	}
	var lines []Line
	for _, page := range doc.GetPages() {
		for _, l := range page.GetLines() {
			text := strings.TrimSpace(anchorText(l.GetLayout(), doc.GetText()))
			if text == "" {
				continue
			}
			lines = append(lines, Line{
				Text:  text,
				Words: []Word{{Text: text, Confidence: float64(l.GetLayout().GetConfidence())}},
			})
		}
	}
	if len(lines) == 0 && strings.TrimSpace(doc.GetText()) != "" {
		lines = []Line{{Text: strings.TrimSpace(doc.GetText())}}
	}
	return resultFromLines(id, lines)
}

// anchorText returns the part of the document text a layout points at.
// Segment indices count runes.
func anchorText(layout *documentaipb.Document_Page_Layout, full string) string {
	if layout.GetTextAnchor() == nil {
		return ""
	}
	runes := []rune(full)
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start := min(max(int(seg.GetStartIndex()), 0), len(runes))
		end := min(max(int(seg.GetEndIndex()), start), len(runes))
		b.WriteString(string(runes[start:end]))
	}
	return b.String()
}
