package model

// Service is an offering of a barbershop.  Its price is copied into each
// booking at creation, so later price edits never rewrite booking history.
type Service struct {
	ID           string // services.id
	BarbershopID string // services.barbershop_id
	Name         string // services.name
	PriceCents   int64  // services.price_cents
	IsActive     bool   // services.is_active
}
