package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"enrolsight/pkg/pagination"
)

type previewInput struct {
	DatasetID string `validate:"required"`
	Table     string `validate:"tablename"`
	From      string `validate:"datefmt"`
	Cursor    string `validate:"cursor"`
}

func TestValidateStruct_OK(t *testing.T) {
	tok, err := pagination.EncodeCursor(pagination.Cursor{Did: "ds", T: "enrolment", Off: 0, Ps: 10})
	require.NoError(t, err)

	msg := ValidateStruct(previewInput{
		DatasetID: "ds-1",
		Table:     "biometric",
		From:      "31-01-2026",
		Cursor:    tok,
	})
	require.Empty(t, msg)
}

func TestValidateStruct_EmptyOptionalFields(t *testing.T) {
	msg := ValidateStruct(previewInput{DatasetID: "ds-1"})
	require.Empty(t, msg)
}

func TestValidateStruct_Required(t *testing.T) {
	msg := ValidateStruct(previewInput{Table: "enrolment"})
	require.True(t, strings.HasPrefix(msg, "VALIDATION:"), msg)
	require.Contains(t, msg, "datasetid is required")
}

func TestValidateStruct_DateFormat(t *testing.T) {
	msg := ValidateStruct(previewInput{DatasetID: "ds-1", From: "2026-01-31"})
	require.Contains(t, msg, "DD-MM-YYYY")
}

func TestValidateStruct_TableName(t *testing.T) {
	msg := ValidateStruct(previewInput{DatasetID: "ds-1", Table: "workbook"})
	require.Contains(t, msg, "table must be one of")
}

func TestValidateStruct_Cursor(t *testing.T) {
	msg := ValidateStruct(previewInput{DatasetID: "ds-1", Cursor: "not-a-cursor!!"})
	require.True(t, strings.HasPrefix(msg, "CURSOR_INVALID:"), msg)
}
