package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	importapp "github.com/erp/poimport/internal/application/import"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/erp/poimport/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockImporter struct {
	mock.Mock
	body []byte
}

func (m *mockImporter) ImportReader(ctx context.Context, r io.Reader, format csvimport.Format) (*importapp.ImportSummary, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.body = body
	args := m.Called(ctx, format)
	summary, _ := args.Get(0).(*importapp.ImportSummary)
	return summary, args.Error(1)
}

func (m *mockImporter) Options() importapp.Options {
	return m.Called().Get(0).(importapp.Options)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
