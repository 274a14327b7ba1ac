package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTypeLabel(t *testing.T) {
	assert.Equal(t, "Contract", DocumentTypeContract.Label())
	assert.Equal(t, "Case Law", DocumentTypeCaseLaw.Label())
	// unbekannte Werte werden unverändert durchgereicht
	assert.Equal(t, "memo", DocumentType("memo").Label())
}
