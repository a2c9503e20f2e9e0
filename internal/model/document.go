package model

// Document is one uploaded certificate image, owned by a single request.
type Document struct {
	Bytes     []byte `json:"-"`
	MediaType string `json:"media_type"` // e.g. "image/png"
	Filename  string `json:"filename,omitempty"`
}

// Size returns the payload size in bytes.
func (d Document) Size() int {
	return len(d.Bytes)
}

// IsImage reports whether the declared media type is an image type.
func (d Document) IsImage() bool {
	return len(d.MediaType) > 6 && d.MediaType[:6] == "image/"
}
