package view

import (
	"context"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/reducer"
)

type FlightEditor interface {
	Create(ctx context.Context, in domain.FlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error)
	Cancel(ctx context.Context, id int64) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	GenerateReport(ctx context.Context, rt domain.ReportType) error
}

type ManagerSnapshot struct {
	Status
	Flights  []domain.Flight  `json:"flights"`
	Airlines []domain.Airline `json:"airlines"`
}

// ManagerView lists the flights the signed-in manager created, including
// rejected ones with their reason.
type ManagerView struct {
	base
	catalog Catalog
	editor  FlightEditor
	viewer  reducer.Viewer

	flights  []domain.Flight
	airlines []domain.Airline
}

func NewManagerView(catalog Catalog, editor FlightEditor, viewer reducer.Viewer, opts Options) *ManagerView {
	v := &ManagerView{catalog: catalog, editor: editor, viewer: viewer}
	v.init("manager", opts)
	return v
}

func (v *ManagerView) Mount(ctx context.Context) error {
	if err := v.live(ctx, events.NamespaceManager, v.viewer.UserID, v.handle, nil); err != nil {
		return err
	}
	airlines, err := v.catalog.ListAirlines(ctx)
	if err != nil {
		v.logger.WithError(err).Warn("failed to load airlines")
	} else {
		v.mu.Lock()
		v.airlines = airlines
		v.mu.Unlock()
	}
	_ = v.Reload(ctx)
	return nil
}

func (v *ManagerView) Reload(ctx context.Context) error {
	v.beginLoad()
	flights, err := v.catalog.ListFlights(ctx, domain.BucketMine)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrUnmounted
	}
	if err == nil {
		v.flights = flights
	}
	v.endLoad(err)
	v.mu.Unlock()
	v.changed()
	return err
}

func (v *ManagerView) handle(ev events.Event) {
	v.mu.Lock()
	if !v.admit(ev) {
		v.mu.Unlock()
		return
	}
	next, out := reducer.ReduceOwned(v.flights, v.viewer, ev)
	v.flights = next
	v.mu.Unlock()
	v.settle(ev, out)
}

func (v *ManagerView) Snapshot() ManagerSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ManagerSnapshot{
		Status:   v.status,
		Flights:  append([]domain.Flight{}, v.flights...),
		Airlines: append([]domain.Airline{}, v.airlines...),
	}
}

func (v *ManagerView) Create(ctx context.Context, in domain.FlightInput) (*domain.Flight, error) {
	flight, err := v.editor.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	v.upsert(*flight)
	return flight, nil
}

func (v *ManagerView) Update(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error) {
	flight, err := v.editor.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	v.upsert(*flight)
	return flight, nil
}

func (v *ManagerView) Cancel(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := v.editor.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	v.upsert(*flight)
	return flight, nil
}

func (v *ManagerView) Delete(ctx context.Context, id int64) error {
	if err := v.editor.Delete(ctx, id); err != nil {
		return err
	}
	v.mu.Lock()
	if !v.closed {
		v.flights = reducer.RemoveFlightFromAll(reducer.Board{Pending: v.flights}, id).Pending
	}
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *ManagerView) GenerateReport(ctx context.Context, rt domain.ReportType) error {
	return v.editor.GenerateReport(ctx, rt)
}

func (v *ManagerView) upsert(f domain.Flight) {
	v.mu.Lock()
	if !v.closed {
		v.flights = reducer.Upsert(v.flights, f)
	}
	v.mu.Unlock()
	v.changed()
}
