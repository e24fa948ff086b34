package ratings

import (
	"context"
	"strings"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
)

type RatingAPI interface {
	ListRatings(ctx context.Context) ([]domain.FlightRating, error)
	RateFlight(ctx context.Context, in domain.RatingInput) (domain.FlightRating, error)
}

type RatingService struct {
	api      RatingAPI
	notifier notify.Notifier
}

func NewRatingService(api RatingAPI, notifier notify.Notifier) *RatingService {
	return &RatingService{api: api, notifier: notifier}
}

func (s *RatingService) List(ctx context.Context) ([]domain.FlightRating, error) {
	return s.api.ListRatings(ctx)
}

// Rate submits a 1..5 score for a finished flight.
func (s *RatingService) Rate(ctx context.Context, in domain.RatingInput) (*domain.FlightRating, error) {
	var v apiclient.ValidationError
	if in.FlightID == 0 {
		v.Add("flight_id", "flight is required")
	}
	if in.Score < 1 || in.Score > 5 {
		v.Add("ocena", "score must be between 1 and 5")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	in.Comment = strings.TrimSpace(in.Comment)

	rating, err := s.api.RateFlight(ctx, in)
	if err != nil {
		s.notifier.Notify(ctx, notify.Error("Error", apiclient.Message(err, "Could not save the rating.")))
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Success("Rating saved", "Thank you for rating the flight."))
	return &rating, nil
}
