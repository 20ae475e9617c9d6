package model

// UploadedItem is one file received from the presentation layer.
// It is never modified after ingestion.
type UploadedItem struct {
	Name string
	Kind MediaKind
	Data []byte
}

// Batch is the ordered set of items for one conversion request.
type Batch struct {
	Items []UploadedItem
}

// NewItem builds an UploadedItem, deciding its kind from the declared MIME
// type or, failing that, the file name.
func NewItem(name, mime string, data []byte) (UploadedItem, error) {
	kind, err := DetectKind(name, mime)
	if err != nil {
		return UploadedItem{}, err
	}
	return UploadedItem{Name: name, Kind: kind, Data: data}, nil
}

// Len returns the number of items.
func (b Batch) Len() int { return len(b.Items) }
