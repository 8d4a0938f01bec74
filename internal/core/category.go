package core

import (
	"encoding/json"
	"strings"
)

// CategoryRef is the boundary representation of a transaction's category.
// Clients historically send either a bare id string or an inline object with
// id and name. Both shapes decode into this type; the core only ever works
// with the normalized id.
type CategoryRef struct {
	ID   string
	Name string // present only for the inline shape
}

// UnmarshalJSON accepts `"cat-id"` or `{"id":"cat-id","name":"Food"}`.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.ID = strings.TrimSpace(s)
		c.Name = ""
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.ID = strings.TrimSpace(obj.ID)
	c.Name = strings.TrimSpace(obj.Name)
	return nil
}

// MarshalJSON always emits the normalized reference form.
func (c CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ID)
}

// Normalize returns the category id the core stores. Empty means
// uncategorized.
func (c CategoryRef) Normalize() string {
	return c.ID
}
