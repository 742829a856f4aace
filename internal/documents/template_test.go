package documents

import (
	"context"
	"testing"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateSource(t *testing.T) {
	_, err := NewTemplateSource("")
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewTemplateSource("https://clinic.example/docs/latest.pdf")
	require.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewTemplateSource("https://clinic.example/docs/{type}/{id}.pdf")
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	src, err := NewTemplateSource("https://clinic.example/docs/{type}/{id}.pdf?p={patient}")
	require.NoError(t, err)

	doc, err := src.Resolve(context.Background(), service.DocumentRef{
		PatientID:    "p-9",
		PatientName:  "Maria da Silva",
		DocumentID:   "42",
		DocumentType: "receita",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://clinic.example/docs/receita/42.pdf?p=p-9", doc.URL)
	assert.Equal(t, "receita-Maria_da_Silva-42.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.MimeType)
}

func TestResolveDefaultsAndEscapes(t *testing.T) {
	src, err := NewTemplateSource("https://clinic.example/{type}/{id}")
	require.NoError(t, err)

	doc, err := src.Resolve(context.Background(), service.DocumentRef{DocumentID: "a/b"})
	require.NoError(t, err)
	assert.Equal(t, "https://clinic.example/documento/a%2Fb", doc.URL)
	assert.Equal(t, "documento-a_b.pdf", doc.FileName)

	_, err = src.Resolve(context.Background(), service.DocumentRef{})
	require.ErrorIs(t, err, common.ErrMissingField)
}
