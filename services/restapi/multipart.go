package restapi

import (
	"bytes"
	"mime/multipart"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/register"
)

// multipartBody encodes up as the form the backend expects for uploads.
func multipartBody(up register.DocumentUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("id_required_document", strconv.Itoa(up.RequiredDocumentID)); err != nil {
		return nil, "", errors.Wrap(err, "writing id_required_document")
	}
	if up.Description != "" {
		if err := w.WriteField("description", up.Description); err != nil {
			return nil, "", errors.Wrap(err, "writing description")
		}
	}
	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating file part")
	}
	if _, err = part.Write(up.Content); err != nil {
		return nil, "", errors.Wrap(err, "writing file part")
	}
	if err = w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing form")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
