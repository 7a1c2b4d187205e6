package domain

import "time"

type Product struct {
	ID                        int64
	Name                      string
	SKU                       string
	Unit                      string
	ProductionDurationMinutes int64
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type RawMaterial struct {
	ID        int64
	Name      string
	Unit      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Supplier struct {
	ID    int64
	Name  string
	Email string
}
