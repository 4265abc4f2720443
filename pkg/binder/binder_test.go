package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tempshare/pkg/binder"
)

type uploadRequest struct {
	File       *multipart.FileHeader `file:"file"`
	Provider   string                `form:"provider"`
	Folder     string                `form:"folder"`
	Expiration *int                  `form:"expiration_minutes"`
	Limit      *int                  `form:"access_limit"`
	Ignored    string                `form:"-"`
}

func multipartRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("multipart fields and file", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, map[string]string{
			"provider":           "aws_s3",
			"folder":             "docs",
			"expiration_minutes": "30",
			"access_limit":       "-1",
		}, "report.pdf", "pdf-bytes")

		var got uploadRequest
		require.NoError(t, binder.Form(0)(req, &got))
		assert.Equal(t, "aws_s3", got.Provider)
		assert.Equal(t, "docs", got.Folder)
		require.NotNil(t, got.Expiration)
		assert.Equal(t, 30, *got.Expiration)
		require.NotNil(t, got.Limit)
		assert.Equal(t, -1, *got.Limit)
		require.NotNil(t, got.File)
		assert.Equal(t, "report.pdf", got.File.Filename)
		assert.Equal(t, int64(9), got.File.Size)
	})

	t.Run("empty values are absent", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, map[string]string{"expiration_minutes": "", "provider": ""}, "a.txt", "x")

		var got uploadRequest
		require.NoError(t, binder.Form(0)(req, &got))
		assert.Nil(t, got.Expiration)
		assert.Empty(t, got.Provider)
	})

	t.Run("filename is stripped of directories", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, nil, "../../etc/passwd", "x")

		var got uploadRequest
		require.NoError(t, binder.Form(0)(req, &got))
		require.NotNil(t, got.File)
		assert.Equal(t, "passwd", got.File.Filename)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, map[string]string{"provider": "local"}, "", "")

		var got uploadRequest
		require.NoError(t, binder.Form(0)(req, &got))
		assert.Nil(t, got.File)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, map[string]string{"access_limit": "many"}, "a.txt", "x")

		var got uploadRequest
		err := binder.Form(0)(req, &got)
		require.ErrorIs(t, err, binder.ErrFailedToParseForm)
		assert.True(t, binder.IsBindingError(err))
	})

	t.Run("urlencoded", func(t *testing.T) {
		t.Parallel()
		form := url.Values{"provider": {"local"}, "access_limit": {"3"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var got uploadRequest
		require.NoError(t, binder.Form(0)(req, &got))
		assert.Equal(t, "local", got.Provider)
		require.NotNil(t, got.Limit)
		assert.Equal(t, 3, *got.Limit)
	})

	t.Run("missing content type", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))

		var got uploadRequest
		require.ErrorIs(t, binder.Form(0)(req, &got), binder.ErrMissingContentType)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		var got uploadRequest
		require.ErrorIs(t, binder.Form(0)(req, &got), binder.ErrUnsupportedMediaType)
	})

	t.Run("invalid boundary", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
		req.Header.Set("Content-Type", `multipart/form-data; boundary="bad<>"`)

		var got uploadRequest
		require.ErrorIs(t, binder.Form(0)(req, &got), binder.ErrFailedToParseForm)
	})

	t.Run("body over limit", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, nil, "big.bin", strings.Repeat("x", 4096))
		rec := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(rec, req.Body, 512)

		var got uploadRequest
		require.ErrorIs(t, binder.Form(0)(req, &got), binder.ErrRequestTooLarge)
	})

	t.Run("non-pointer target", func(t *testing.T) {
		t.Parallel()
		req := multipartRequest(t, nil, "a.txt", "x")
		require.ErrorIs(t, binder.Form(0)(req, uploadRequest{}), binder.ErrFailedToParseForm)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type linkRequest struct {
		Provider string   `query:"provider"`
		Path     string   `query:"file_path"`
		Minutes  int      `query:"expiration_minutes"`
		Tags     []string `query:"tags"`
		Skip     string   `query:"-"`
	}

	t.Run("binds values", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/cloud-link?provider=aws_s3&file_path=a%2Fb.txt&expiration_minutes=15&tags=x,y&Skip=z", nil)

		var got linkRequest
		require.NoError(t, binder.Query()(req, &got))
		assert.Equal(t, "aws_s3", got.Provider)
		assert.Equal(t, "a/b.txt", got.Path)
		assert.Equal(t, 15, got.Minutes)
		assert.Equal(t, []string{"x", "y"}, got.Tags)
		assert.Empty(t, got.Skip)
	})

	t.Run("empty number is absent", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/cloud-link?expiration_minutes=", nil)

		var got linkRequest
		require.NoError(t, binder.Query()(req, &got))
		assert.Zero(t, got.Minutes)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/cloud-link?expiration_minutes=soon", nil)

		var got linkRequest
		require.ErrorIs(t, binder.Query()(req, &got), binder.ErrFailedToParseQuery)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type fileRequest struct {
		ID    string `path:"id"`
		Other string
	}

	params := map[string]string{"id": "3f1c", "Other": "nope"}
	extract := func(_ *http.Request, name string) string { return params[name] }

	t.Run("binds tagged fields only", func(t *testing.T) {
		t.Parallel()
		var got fileRequest
		require.NoError(t, binder.Path(extract)(httptest.NewRequest(http.MethodGet, "/file/3f1c", nil), &got))
		assert.Equal(t, "3f1c", got.ID)
		assert.Empty(t, got.Other)
	})

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()
		var got fileRequest
		err := binder.Path(nil)(httptest.NewRequest(http.MethodGet, "/", nil), &got)
		require.ErrorIs(t, err, binder.ErrFailedToParsePath)
	})
}
