package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Document is a single item definition as it appears in a catalog file. The
// struct is exported so the schema generator can reflect over it.
type Document struct {
	ID           string   `json:"id" jsonschema:"title=Item ID,description=Stable identifier referenced by inventories and commands.,pattern=^[a-z0-9_]+$,minLength=1,required"`
	Name         string   `json:"name,omitempty" jsonschema:"title=Display name"`
	Description  string   `json:"description,omitempty" jsonschema:"title=Description"`
	Category     Category `json:"category" jsonschema:"title=Category,enum=weapon,enum=tool,enum=armor,enum=consumable,enum=material,enum=resource,enum=quest,enum=misc,required"`
	MaxStackSize int      `json:"maxStackSize" jsonschema:"title=Max stack size,description=Units per slot; 1 means the item does not stack.,minimum=1,required"`
	Durability   int      `json:"durability,omitempty" jsonschema:"title=Durability,description=Base durability for weapons tools and armor.,minimum=0"`
}

// FileDocuments is the canonical array form of a catalog file. Load also
// accepts an object keyed by item id.
type FileDocuments []Document

// LoadFile reads and parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed loading %s: %w", path, err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed parsing %s: %w", path, err)
	}
	return c, nil
}

// Load parses a catalog document stream and validates every entry.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		item, err := NewItem(ItemParams{
			ID:           doc.ID,
			Name:         doc.Name,
			Description:  doc.Description,
			Category:     Category(strings.ToLower(string(doc.Category))),
			MaxStackSize: doc.MaxStackSize,
			Durability:   doc.Durability,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return New(items...)
}

func decodeDocuments(data []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(object))
		for id := range object {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		docs := make([]Document, 0, len(ids))
		for _, id := range ids {
			var doc Document
			if err := json.Unmarshal(object[id], &doc); err != nil {
				return nil, fmt.Errorf("item %q: %w", id, err)
			}
			if doc.ID == "" {
				doc.ID = id
			} else if doc.ID != id {
				return nil, fmt.Errorf("item id %q does not match key %q", doc.ID, id)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}
