package models

// OriginKind identifies which extraction strategy applies to a Document.
type OriginKind string

const (
	OriginMarkup OriginKind = "markup"
	OriginPDF    OriginKind = "pdf"
	OriginOffice OriginKind = "office"
)

// SourceLabel is the human readable origin label written to the source column.
func (o OriginKind) SourceLabel() string {
	switch o {
	case OriginPDF:
		return "Documento PDF"
	case OriginOffice:
		return "Documento DOCX"
	default:
		return "Web (HTML)"
	}
}

// Document is one unit of input: a file under the corpus root or a URL.
// Path is set for files, URL for fetched pages. SourceURL is the canonical
// locator used for attribution and fallback answers.
type Document struct {
	ID        string
	Path      string
	URL       string
	Origin    OriginKind
	Category  string
	SourceURL string
}

// Remote reports whether the document must be fetched over HTTP.
func (d Document) Remote() bool {
	return d.Path == "" && d.URL != ""
}

// Location returns the path or URL, whichever identifies the document.
func (d Document) Location() string {
	if d.Remote() {
		return d.URL
	}
	return d.Path
}

type ExtractedContent struct {
	Title string
	Body  string
}

// Empty reports whether there is no usable body text.
func (c ExtractedContent) Empty() bool {
	return c.Body == ""
}

// PageType classifies a document's intent.
type PageType string

const (
	PageService PageType = "servicio"
	PageLegal   PageType = "legal"
	PageBlog    PageType = "blog"
	PageHome    PageType = "inicio"
	PageOther   PageType = "otro"
)

// Record is one row of the knowledge base table.
type Record struct {
	Question  string
	Answer    string
	Category  string
	Source    string
	SourceURL string
}
