// Package documents resolves document references into deliverable files.
package documents

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// TemplateSource builds a document URL from a template such as
// "https://clinic.example/docs/{type}/{id}.pdf". Supported placeholders are
// {id}, {type}, {patient} and {patientName}; values are path-escaped.
type TemplateSource struct {
	template string
}

var _ service.DocumentSource = (*TemplateSource)(nil)

// NewTemplateSource validates template and returns a TemplateSource.
func NewTemplateSource(template string) (*TemplateSource, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return nil, fmt.Errorf("%w: documents.url_template", common.ErrMissingConfig)
	}
	if !strings.Contains(template, "{id}") {
		return nil, fmt.Errorf("%w: documents.url_template must contain {id}", common.ErrInvalidConfig)
	}
	if _, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(template)); err != nil {
		return nil, fmt.Errorf("%w: documents.url_template: %w", common.ErrInvalidConfig, err)
	}
	return &TemplateSource{template: template}, nil
}

// Resolve fills the template for ref.
func (s *TemplateSource) Resolve(_ context.Context, ref service.DocumentRef) (transport.Document, error) {
	if ref.DocumentID == "" {
		return transport.Document{}, common.MissingField("prescriptionId")
	}

	docType := ref.DocumentType
	if docType == "" {
		docType = "documento"
	}

	link := strings.NewReplacer(
		"{id}", url.PathEscape(ref.DocumentID),
		"{type}", url.PathEscape(docType),
		"{patient}", url.PathEscape(ref.PatientID),
		"{patientName}", url.PathEscape(ref.PatientName),
	).Replace(s.template)

	return transport.Document{
		URL:      link,
		FileName: fileName(docType, ref),
		MimeType: "application/pdf",
	}, nil
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_")

func fileName(docType string, ref service.DocumentRef) string {
	parts := []string{docType}
	if ref.PatientName != "" {
		parts = append(parts, strings.Join(strings.Fields(ref.PatientName), "_"))
	}
	parts = append(parts, ref.DocumentID)
	return unsafeFileChars.Replace(strings.Join(parts, "-")) + ".pdf"
}
