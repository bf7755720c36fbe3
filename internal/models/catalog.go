package models

import "github.com/google/uuid"

// Category groups products into an optional parent/child tree.
type Category struct {
	BaseModel
	Name            string     `gorm:"uniqueIndex" json:"name"`
	Slug            string     `gorm:"uniqueIndex" json:"slug"`
	Description     string     `json:"description"`
	Image           string     `json:"image"`
	Icon            string     `json:"icon"`
	Color           string     `gorm:"default:'#8b5cf6'" json:"color"`
	ParentID        *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Parent          *Category  `json:"parent,omitempty"`
	Children        []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	IsFeatured      bool       `json:"is_featured"`
	SortOrder       int        `json:"sort_order"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	Products        []Product  `json:"products,omitempty"`
}

// FullPath joins the parent chain with this category's name. Computed on
// read; the Parent association must be preloaded for the full chain.
func (c *Category) FullPath() string {
	if c.Parent != nil {
		return c.Parent.FullPath() + " > " + c.Name
	}
	return c.Name
}
