package chat

// Model is one entry in the static model registry served by GET /models.
type Model struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// Models is the registry of selectable models. The first entry is the
// default.
var Models = []Model{
	{ID: "DocSearch", Model: "docsearch-1.0", Object: "model", OwnedBy: "docsearch"},
}

// DefaultModelID is used when the request names no model or an unknown one.
var DefaultModelID = Models[0].ID

// ValidateModelID resolves a requested model id, falling back to the
// default for blank or unknown ids.
func ValidateModelID(id string) string {
	if id == "" {
		return DefaultModelID
	}
	for _, m := range Models {
		if m.ID == id {
			return id
		}
	}
	return DefaultModelID
}
