package entity

import "time"

// Location representa un punto físico de stock (bodega, tienda).
type Location struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
