package models

import (
	"encoding/json"
	"fmt"
)

// Document - инцидент в виде плоского набора ключ-значение, как он лежит в хранилище
type Document map[string]any

// Document преобразует инцидент в документ хранилища
func (i *Incident) Document() (Document, error) {
	raw, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal incident %s: %w", i.ID, err)
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to build document for incident %s: %w", i.ID, err)
	}
	return doc, nil
}

// IncidentFromDocument восстанавливает инцидент из документа хранилища
func IncidentFromDocument(doc Document) (*Incident, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal incident document: %w", err)
	}
	incident := &Incident{}
	if err := json.Unmarshal(raw, incident); err != nil {
		return nil, fmt.Errorf("failed to decode incident document: %w", err)
	}
	return incident, nil
}
