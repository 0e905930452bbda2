package telegram

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// multipartBody streams fields followed by the file at path under fileField.
// The returned reader must be consumed or closed by the caller.
func multipartBody(fields map[string]string, fileField, path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		err := writeParts(mw, fields, fileField, filepath.Base(path), f)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType(), nil
}

func writeParts(mw *multipart.Writer, fields map[string]string, fileField, filename string, r io.Reader) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile(fileField, filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
