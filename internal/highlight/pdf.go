package highlight

import "github.com/dgallion1/pdfqa/internal/pdfdoc"

// PDFOpener opens documents with pdfdoc.
var PDFOpener Opener = OpenerFunc(func(path string) (Document, error) {
	d, err := pdfdoc.Open(path)
	if err != nil {
		return nil, err
	}
	return pdfDocument{d}, nil
})

type pdfDocument struct {
	*pdfdoc.Document
}

func (d pdfDocument) Page(index int) (Page, error) {
	p, err := d.Document.Page(index)
	if err != nil {
		return nil, err
	}
	return p, nil
}
