package domain

type Role string

const (
	RoleUser          Role = "KORISNIK"
	RoleManager       Role = "MENADZER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdministrator:
		return true
	}
	return false
}

// CanManageFlights reports whether the role may create and edit flights.
func (r Role) CanManageFlights() bool {
	return r == RoleManager || r == RoleAdministrator
}

func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"ime"`
	LastName     string    `json:"prezime"`
	Email        string    `json:"email"`
	DateOfBirth  string    `json:"datum_rodjenja"`
	Gender       string    `json:"pol"`
	Country      string    `json:"drzava"`
	Street       string    `json:"ulica"`
	StreetNumber string    `json:"broj"`
	Role         Role      `json:"uloga"`
	Balance      float64   `json:"stanje_racuna"`
	ProfileImage string    `json:"profilna_slika,omitempty"`
	Active       bool      `json:"aktivan"`
	CreatedAt    Timestamp `json:"kreiran"`
	UpdatedAt    Timestamp `json:"azuriran"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterData struct {
	FirstName    string  `json:"ime"`
	LastName     string  `json:"prezime"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	DateOfBirth  string  `json:"datum_rodjenja"`
	Gender       string  `json:"pol"`
	Country      string  `json:"drzava"`
	Street       string  `json:"ulica"`
	StreetNumber string  `json:"broj"`
	Balance      float64 `json:"stanje_racuna"`
	ProfileImage string  `json:"profilna_slika,omitempty"`
}

// UserUpdate carries a partial profile edit; empty fields are not sent.
type UserUpdate struct {
	FirstName    string `json:"ime,omitempty"`
	LastName     string `json:"prezime,omitempty"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	DateOfBirth  string `json:"datum_rodjenja,omitempty"`
	Gender       string `json:"pol,omitempty"`
	Country      string `json:"drzava,omitempty"`
	Street       string `json:"ulica,omitempty"`
	StreetNumber string `json:"broj,omitempty"`
	ProfileImage string `json:"profilna_slika,omitempty"`
}
