package models

import (
	"bytes"

	"github.com/google/uuid"
)

// Container is a weighed vessel (plate, bowl, ...) whose weight is
// subtracted when weighing food. The image is an optional photo of the
// vessel, stored in the cloud as a separate asset.
type Container struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Weight    float64   `json:"weight"`
	ImageData []byte    `json:"imageData,omitempty"`
}

func (c Container) EntityID() uuid.UUID { return c.ID }
func (c Container) EntityName() string  { return c.Name }

// Equal compares structurally, image bytes included.
func (c Container) Equal(other Container) bool {
	return c.ID == other.ID &&
		c.Name == other.Name &&
		c.Weight == other.Weight &&
		bytes.Equal(c.ImageData, other.ImageData)
}
