package document

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ledongthuc/pdf"

	"github.com/cv-app-yz/cv-app/internal/model"
)

const (
	ContentTypePDF = "application/pdf"
	// DefaultMaxSize matches the upload limit of the analysis service.
	DefaultMaxSize int64 = 5 * 1024 * 1024

	field = "file"
)

// Document is a résumé ready for upload.
type Document struct {
	Name        string `validate:"required"`
	ContentType string `validate:"eq=application/pdf"`
	Data        []byte `validate:"min=1"`
	// Pages and HasText come from a local inspection. The service uses its own
	// extractor, so both are hints: Pages is 0 when the local reader failed.
	Pages   int
	HasText bool
	// InspectErr is why the local reader could not read the file, if it could not.
	InspectErr error `validate:"-"`
}

// Options tune Load and Parse.
type Options struct {
	MaxSize int64
	// RequireText rejects files the local reader finds no text in. Off by
	// default: the service decides and answers with a 400 detail.
	RequireText bool
}

// Warning describes why the service may reject the document, or "" when the
// local inspection found nothing wrong.
func (d *Document) Warning() string {
	switch {
	case d.InspectErr != nil:
		return fmt.Sprintf("could not read the PDF locally: %v", d.InspectErr)
	case !d.HasText:
		return "no extractable text found locally"
	default:
		return ""
	}
}

var validate = validator.New()

// Load reads a PDF from disk. Only the extension and size are hard checks;
// see Options.RequireText.
func Load(path string, opts Options) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, &model.ValidationError{Field: field, Reason: "only PDF files are accepted"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("%s does not exist", path)}
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("%s is a directory", path)}
	}
	if opts.MaxSize > 0 && info.Size() > opts.MaxSize {
		return nil, tooLarge(info.Size(), opts.MaxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return Parse(filepath.Base(path), data, opts)
}

// Parse validates in-memory PDF bytes.
func Parse(name string, data []byte, opts Options) (*Document, error) {
	if opts.MaxSize > 0 && int64(len(data)) > opts.MaxSize {
		return nil, tooLarge(int64(len(data)), opts.MaxSize)
	}

	pages, text, inspectErr := inspect(data)

	doc := &Document{
		Name:        name,
		ContentType: ContentTypePDF,
		Data:        data,
		Pages:       pages,
		HasText:     strings.TrimSpace(text) != "",
		InspectErr:  inspectErr,
	}

	if opts.RequireText {
		if inspectErr != nil {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("not a readable PDF: %v", inspectErr)}
		}
		if !doc.HasText {
			return nil, &model.ValidationError{Field: field, Reason: "PDF has no extractable text"}
		}
	}

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("%s failed %q check", verrs[0].Field(), verrs[0].Tag())}
		}
		return nil, err
	}

	return doc, nil
}

func tooLarge(size, limit int64) error {
	return &model.ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("file is %d bytes, limit is %d", size, limit),
	}
}

// inspect counts pages and extracts plain text. The pdf reader panics on
// some malformed inputs, which is reported as an error. A page that fails
// to extract makes the whole inspection an error rather than "no text".
func inspect(data []byte) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, "", err
	}

	var b strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, perr := page.GetPlainText(nil)
		if perr != nil {
			return pages, b.String(), fmt.Errorf("page %d: %w", i, perr)
		}
		b.WriteString(content)
	}

	return pages, b.String(), nil
}
