package catalog

import "time"

// Cafeteria is a food court on campus.
type Cafeteria struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Location  string    `json:"location" db:"location"`
	OpenHours string    `json:"open_hours,omitempty" db:"open_hours"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Stall is a single vendor inside a cafeteria.
type Stall struct {
	ID          int64     `json:"id" db:"id"`
	CafeteriaID int64     `json:"cafeteria_id" db:"cafeteria_id"`
	Name        string    `json:"name" db:"name"`
	Cuisine     string    `json:"cuisine,omitempty" db:"cuisine"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
