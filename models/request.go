package models

// PDFRequest is the payload for POST /api/pdf/convert.
type PDFRequest struct {
	// HTML is the markup to render. Required, validated by the handler so the
	// 400 body matches the documented message.
	HTML string `json:"html"`

	Options *PDFOptions `json:"options,omitempty"`
}

// PDFOptions controls PDF export. Every field is optional; a nil pointer
// means "use the default", so an explicit false or empty value is honored.
type PDFOptions struct {
	// Format is the paper size name (A0-A6, Letter, Legal, Tabloid, Ledger).
	// Default: "A4".
	Format *string `json:"format,omitempty"`

	// Margin holds per-side lengths: CSS strings ("1cm", "10mm", "0.5in",
	// "20px") or bare numbers in pixels. Unset sides default to 1cm.
	Margin *Margin `json:"margin,omitempty"`

	// Landscape rotates the page. Default: false.
	Landscape *bool `json:"landscape,omitempty"`

	// Base64 switches the response from a binary download to a JSON payload.
	Base64 bool `json:"base64,omitempty"`
}

// Margin is the per-side page margin.
type Margin struct {
	Top    *CSSLength `json:"top,omitempty"`
	Right  *CSSLength `json:"right,omitempty"`
	Bottom *CSSLength `json:"bottom,omitempty"`
	Left   *CSSLength `json:"left,omitempty"`
}

// ImageRequest is the payload for POST /api/image/convert.
type ImageRequest struct {
	HTML string `json:"html"`

	Options *ImageOptions `json:"options,omitempty"`
}

// ImageOptions controls screenshot capture. Values are validated by the
// image service, which also accepts the type in any letter case.
type ImageOptions struct {
	// Type is the encoding: "png" (default) or "jpeg".
	Type *string `json:"type,omitempty"`

	// FullPage captures the whole scrollable page instead of the viewport.
	// Default: true.
	FullPage *bool `json:"fullPage,omitempty"`

	// Transparent omits the default white background. PNG only; ignored for JPEG.
	// Default: false.
	Transparent *bool `json:"transparent,omitempty"`

	// Quality is the JPEG quality (1-100). Ignored for PNG.
	Quality *int `json:"quality,omitempty"`

	Base64 bool `json:"base64,omitempty"`
}

// WantsBase64 reports whether the caller asked for a JSON payload.
func (o *PDFOptions) WantsBase64() bool { return o != nil && o.Base64 }

// WantsBase64 reports whether the caller asked for a JSON payload.
func (o *ImageOptions) WantsBase64() bool { return o != nil && o.Base64 }
