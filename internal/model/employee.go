package model

// Employee is a staff member who can be assigned to bookings.  Employees
// belong to exactly one barbershop; only active employees accept new
// bookings.
type Employee struct {
	ID           string // employees.id
	BarbershopID string // employees.barbershop_id
	Name         string // employees.name
	IsActive     bool   // employees.is_active
}
