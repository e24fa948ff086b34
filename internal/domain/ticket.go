package domain

type Ticket struct {
	ID          int64     `json:"id"`
	FlightID    int64     `json:"flight_id"`
	UserID      int64     `json:"user_id"`
	Price       float64   `json:"cena"`
	PurchasedAt Timestamp `json:"kupljena"`
	Cancelled   bool      `json:"otkazana"`
	Flight      *Flight   `json:"let,omitempty"`
}

// FlightName returns the name of the ticket's flight, or fallback when the
// flight was not embedded.
func (t Ticket) FlightName(fallback string) string {
	if t.Flight != nil && t.Flight.Name != "" {
		return t.Flight.Name
	}
	return fallback
}

type RatingAuthor struct {
	FirstName string `json:"ime"`
	LastName  string `json:"prezime"`
}

type FlightRating struct {
	ID        int64         `json:"id"`
	FlightID  int64         `json:"flight_id"`
	UserID    int64         `json:"user_id"`
	Score     int           `json:"ocena"`
	Comment   string        `json:"komentar,omitempty"`
	CreatedAt Timestamp     `json:"kreirana"`
	Flight    *Flight       `json:"let,omitempty"`
	Author    *RatingAuthor `json:"korisnik,omitempty"`
}

type RatingInput struct {
	FlightID int64  `json:"flight_id"`
	Score    int    `json:"ocena"`
	Comment  string `json:"komentar,omitempty"`
}
