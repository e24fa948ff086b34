package domain

import "strings"

type FlightStatus string

const (
	FlightStatusAwaitingApproval FlightStatus = "CEKA_ODOBRENJE"
	FlightStatusApproved         FlightStatus = "ODOBREN"
	FlightStatusRejected         FlightStatus = "ODBIJEN"
	FlightStatusInProgress       FlightStatus = "U_TOKU"
	FlightStatusFinished         FlightStatus = "ZAVRSEN"
	FlightStatusCancelled        FlightStatus = "OTKAZAN"
)

func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusAwaitingApproval, FlightStatusApproved, FlightStatusRejected,
		FlightStatusInProgress, FlightStatusFinished, FlightStatusCancelled:
		return true
	}
	return false
}

// Bucket reports which client-side collection a flight with this status
// belongs to. Rejected flights belong to no bucket; they only show up in
// their creator's own list.
func (s FlightStatus) Bucket() (Bucket, bool) {
	switch s {
	case FlightStatusAwaitingApproval:
		return BucketPending, true
	case FlightStatusApproved:
		return BucketUpcoming, true
	case FlightStatusInProgress:
		return BucketInProgress, true
	case FlightStatusFinished, FlightStatusCancelled:
		return BucketFinished, true
	}
	return "", false
}

func (s FlightStatus) Label() string {
	switch s {
	case FlightStatusAwaitingApproval:
		return "awaiting approval"
	case FlightStatusApproved:
		return "approved"
	case FlightStatusRejected:
		return "rejected"
	case FlightStatusInProgress:
		return "in progress"
	case FlightStatusFinished:
		return "finished"
	case FlightStatusCancelled:
		return "cancelled"
	}
	return strings.ToLower(string(s))
}

// Bucket is one of the fixed flight categories the flight API lists by.
type Bucket string

const (
	BucketPending    Bucket = "pending"
	BucketUpcoming   Bucket = "upcoming"
	BucketInProgress Bucket = "in-progress"
	BucketFinished   Bucket = "finished"
	BucketMine       Bucket = "my"
)

// BoardBuckets are the buckets a flight can be routed into by status.
var BoardBuckets = []Bucket{BucketPending, BucketUpcoming, BucketInProgress, BucketFinished}

func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(strings.ReplaceAll(strings.ToLower(s), "_", "-")) {
	case BucketPending:
		return BucketPending, true
	case BucketUpcoming:
		return BucketUpcoming, true
	case BucketInProgress:
		return BucketInProgress, true
	case BucketFinished:
		return BucketFinished, true
	case BucketMine, "mine":
		return BucketMine, true
	}
	return "", false
}

type Airline struct {
	ID      int64  `json:"id"`
	Name    string `json:"naziv"`
	Code    string `json:"kod"`
	Country string `json:"drzava"`
	Logo    string `json:"logo,omitempty"`
	Active  bool   `json:"aktivna"`
}

type Flight struct {
	ID              int64        `json:"id"`
	Name            string       `json:"naziv"`
	AirlineID       int64        `json:"airline_id"`
	Airline         *Airline     `json:"avio_kompanija,omitempty"`
	DistanceKm      float64      `json:"duzina_km"`
	DurationMinutes int          `json:"trajanje_minuta"`
	DepartureTime   Timestamp    `json:"vreme_polaska"`
	ArrivalTime     Timestamp    `json:"vreme_dolaska"`
	Origin          string       `json:"aerodrom_polaska"`
	Destination     string       `json:"aerodrom_dolaska"`
	Price           float64      `json:"cena_karte"`
	TotalSeats      int          `json:"ukupno_mesta"`
	FreeSeats       int          `json:"slobodna_mesta"`
	Status          FlightStatus `json:"status"`
	CreatorID       int64        `json:"kreirao_id"`
	RejectionReason string       `json:"razlog_odbijanja,omitempty"`
	AverageRating   *float64     `json:"prosecna_ocena,omitempty"`
	CreatedAt       Timestamp    `json:"kreiran"`
	UpdatedAt       Timestamp    `json:"azuriran"`
}

// FlightInput is the payload for creating or editing a flight.
type FlightInput struct {
	Name            string    `json:"naziv"`
	AirlineID       int64     `json:"airline_id"`
	DistanceKm      float64   `json:"duzina_km"`
	DurationMinutes int       `json:"trajanje_minuta"`
	DepartureTime   Timestamp `json:"vreme_polaska"`
	Origin          string    `json:"aerodrom_polaska"`
	Destination     string    `json:"aerodrom_dolaska"`
	Price           float64   `json:"cena_karte"`
	TotalSeats      int       `json:"ukupno_mesta"`
}

type FlightSearch struct {
	Name      string
	AirlineID int64
}

type ReportType string

const (
	ReportUpcoming   ReportType = "upcoming"
	ReportInProgress ReportType = "in_progress"
	ReportFinished   ReportType = "finished"
)

func ParseReportType(s string) (ReportType, bool) {
	switch ReportType(strings.ReplaceAll(strings.ToLower(s), "-", "_")) {
	case ReportUpcoming:
		return ReportUpcoming, true
	case ReportInProgress:
		return ReportInProgress, true
	case ReportFinished:
		return ReportFinished, true
	}
	return "", false
}
