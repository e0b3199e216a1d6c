package domain

import "encoding/json"

// MetadataDocument is the JSON document an NFT URI points to.
// Fields outside the known set are kept in Extra and written back on encode.
type MetadataDocument struct {
	Name        string
	Description string
	Image       string
	Attributes  []Attribute
	Extra       map[string]any
}

// Attribute is a typed metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// StringValue returns the attribute value if it is a JSON string.
func (a Attribute) StringValue() (string, bool) {
	s, ok := a.Value.(string)
	return s, ok
}

var knownMetadataFields = []string{"name", "description", "image", "attributes"}

type metadataKnown struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// UnmarshalJSON decodes the known fields and collects everything else into Extra.
func (m *MetadataDocument) UnmarshalJSON(data []byte) error {
	var known metadataKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range knownMetadataFields {
		delete(all, key)
	}

	m.Name = known.Name
	m.Description = known.Description
	m.Image = known.Image
	m.Attributes = known.Attributes
	m.Extra = nil
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

// MarshalJSON writes the known fields alongside the preserved extra fields.
func (m MetadataDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+len(knownMetadataFields))
	for k, v := range m.Extra {
		out[k] = v
	}
	out["name"] = m.Name
	out["description"] = m.Description
	out["image"] = m.Image
	attrs := m.Attributes
	if attrs == nil {
		attrs = []Attribute{}
	}
	out["attributes"] = attrs
	return json.Marshal(out)
}
