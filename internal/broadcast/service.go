package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
)

// Dispatcher hands approved broadcasts to the sending network.
type Dispatcher interface {
	// CreateBroadcast submits a broadcast for transmission.
	CreateBroadcast(ctx context.Context, b *Broadcast) error

	// CancelBroadcast stops an in-flight broadcast.
	CancelBroadcast(ctx context.Context, id string) error
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Repo     Repository
	Composer *Composer
	Store    *catalogue.Store

	// Builder rebuilds stored custom discs when a selection is
	// modified incrementally.
	Builder *customarea.Builder

	// Dispatcher may be nil; approval and cancellation then only
	// record the status change.
	Dispatcher Dispatcher
}

// Service manages broadcast records across their lifecycle.
type Service struct {
	repo       Repository
	composer   *Composer
	store      *catalogue.Store
	builder    *customarea.Builder
	dispatcher Dispatcher
}

// NewService creates a broadcast service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:       cfg.Repo,
		composer:   cfg.Composer,
		store:      cfg.Store,
		builder:    cfg.Builder,
		dispatcher: cfg.Dispatcher,
	}
}

// CreateInput describes a new broadcast.
type CreateInput struct {
	Reference     string
	Content       string
	Selection     aggregate.Selection
	ForceOverride bool
}

// Create composes the selection and stores a draft broadcast.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Broadcast, error) {
	comp, err := s.composer.Compose(ctx, input.Selection)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Broadcast{
		ID:                  uuid.New().String(),
		Reference:           input.Reference,
		Content:             input.Content,
		Status:              StatusDraft,
		AreaIDs:             comp.IDs,
		AreaNames:           comp.Names,
		AggregateNames:      comp.AggregateNames,
		SimplePolygons:      comp.SimplePolygons,
		CustomDiscs:         discsFromSelection(input.Selection),
		ForceOverride:       input.ForceOverride,
		CountOfPhones:       comp.CountOfPhones,
		CountOfPhonesLikely: comp.CountOfPhonesLikely,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get retrieves a broadcast and checks its selection against the
// current catalogue.
func (s *Service) Get(ctx context.Context, id string) (*Broadcast, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.detectDrift(ctx, b)
	return b, nil
}

// List retrieves broadcasts, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Broadcast, error) {
	broadcasts, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, b := range broadcasts {
		s.detectDrift(ctx, b)
	}
	return broadcasts, nil
}

// detectDrift marks records whose stored catalogue ids no longer all
// exist in the catalogue. Drifted records render as fully custom from
// the stored polygon copy. Custom discs cannot drift.
// TODO: revisit once catalogue versions are recorded per broadcast.
func (s *Service) detectDrift(_ context.Context, b *Broadcast) {
	ids := b.CatalogueAreaIDs()
	if len(ids) == 0 {
		return
	}
	areas, err := s.store.GetAreas(ids)
	if err != nil || len(areas) != len(ids) {
		b.Drifted = true
	}
}

// UpdateSelection recomposes an editable broadcast over a new
// selection.
func (s *Service) UpdateSelection(ctx context.Context, id string, sel aggregate.Selection) (*Broadcast, error) {
	b, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applySelection(ctx, b, sel); err != nil {
		return nil, err
	}
	return b, nil
}

// AddAreas extends an editable broadcast's selection and recomposes
// it. Areas already selected are not duplicated.
func (s *Service) AddAreas(ctx context.Context, id string, add aggregate.Selection) (*Broadcast, error) {
	b, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	sel, err := s.rebuildSelection(b)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(b.AreaIDs))
	for _, existing := range b.AreaIDs {
		have[existing] = struct{}{}
	}
	for _, area := range add.Areas {
		if _, ok := have[area.ID]; ok {
			continue
		}
		have[area.ID] = struct{}{}
		sel.Areas = append(sel.Areas, area)
	}
	for _, custom := range add.Custom {
		if _, ok := have[custom.ID]; ok {
			continue
		}
		have[custom.ID] = struct{}{}
		sel.Custom = append(sel.Custom, custom)
	}

	if err := s.applySelection(ctx, b, sel); err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveArea drops one area, catalogued or custom, from an editable
// broadcast's selection and recomposes it. Removing the last area
// fails with ErrEmptySelection.
func (s *Service) RemoveArea(ctx context.Context, id, areaID string) (*Broadcast, error) {
	b, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	found := false
	for _, existing := range b.AreaIDs {
		if existing == areaID {
			found = true
			break
		}
	}
	if !found {
		return nil, &catalogue.NotFoundError{ID: areaID}
	}

	sel, err := s.rebuildSelection(b)
	if err != nil {
		return nil, err
	}
	areas := sel.Areas[:0]
	for _, area := range sel.Areas {
		if area.ID != areaID {
			areas = append(areas, area)
		}
	}
	sel.Areas = areas
	custom := sel.Custom[:0]
	for _, disc := range sel.Custom {
		if disc.ID != areaID {
			custom = append(custom, disc)
		}
	}
	sel.Custom = custom

	if err := s.applySelection(ctx, b, sel); err != nil {
		return nil, err
	}
	return b, nil
}

// editable loads a broadcast whose selection and content may still
// change.
func (s *Service) editable(ctx context.Context, id string) (*Broadcast, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, ErrNotEditable
	}
	return b, nil
}

// applySelection recomposes the broadcast over the selection and
// persists the result.
func (s *Service) applySelection(ctx context.Context, b *Broadcast, sel aggregate.Selection) error {
	comp, err := s.composer.Compose(ctx, sel)
	if err != nil {
		return err
	}

	b.AreaIDs = comp.IDs
	b.AreaNames = comp.Names
	b.AggregateNames = comp.AggregateNames
	b.SimplePolygons = comp.SimplePolygons
	b.CustomDiscs = discsFromSelection(sel)
	b.CountOfPhones = comp.CountOfPhones
	b.CountOfPhonesLikely = comp.CountOfPhonesLikely
	b.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, b)
}

// rebuildSelection reconstructs the stored selection: catalogue areas
// from the store, custom discs from their stored parameters. A
// catalogue id that has left the catalogue surfaces as a not found
// error; incremental edits require an intact selection.
func (s *Service) rebuildSelection(b *Broadcast) (aggregate.Selection, error) {
	var sel aggregate.Selection
	for _, id := range b.CatalogueAreaIDs() {
		area, err := s.store.GetArea(id)
		if err != nil {
			return aggregate.Selection{}, err
		}
		sel.Areas = append(sel.Areas, area)
	}
	for _, disc := range b.CustomDiscs {
		sel.Custom = append(sel.Custom, s.builder.Rebuild(disc.ID, orb.Point{disc.Lng, disc.Lat}, disc.RadiusKm))
	}
	return sel, nil
}

// discsFromSelection captures the rebuildable parameters of each
// custom area in a selection.
func discsFromSelection(sel aggregate.Selection) []CustomDisc {
	if len(sel.Custom) == 0 {
		return nil
	}
	discs := make([]CustomDisc, len(sel.Custom))
	for i, custom := range sel.Custom {
		discs[i] = CustomDisc{
			ID:       custom.ID,
			Lat:      custom.Centre[1],
			Lng:      custom.Centre[0],
			RadiusKm: custom.RadiusKm,
		}
	}
	return discs
}

// UpdateContent replaces the message body of an editable broadcast.
func (s *Service) UpdateContent(ctx context.Context, id, content string) (*Broadcast, error) {
	b, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	b.Content = content
	b.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Submit moves a draft to pending approval.
func (s *Service) Submit(ctx context.Context, id string) (*Broadcast, error) {
	return s.transition(ctx, id, StatusPendingApproval, nil)
}

// Approve moves a pending broadcast to broadcasting and submits it to
// the sending network.
func (s *Service) Approve(ctx context.Context, id string) (*Broadcast, error) {
	return s.transition(ctx, id, StatusBroadcasting, func(ctx context.Context, b *Broadcast) error {
		if s.dispatcher == nil {
			return nil
		}
		return s.dispatcher.CreateBroadcast(ctx, b)
	})
}

// Reject returns a pending broadcast to its author.
func (s *Service) Reject(ctx context.Context, id string) (*Broadcast, error) {
	return s.transition(ctx, id, StatusRejected, nil)
}

// Cancel stops a live broadcast.
func (s *Service) Cancel(ctx context.Context, id string) (*Broadcast, error) {
	return s.transition(ctx, id, StatusCancelled, func(ctx context.Context, b *Broadcast) error {
		if s.dispatcher == nil {
			return nil
		}
		return s.dispatcher.CancelBroadcast(ctx, b.ID)
	})
}

// Complete marks a live broadcast as finished.
func (s *Service) Complete(ctx context.Context, id string) (*Broadcast, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

// transition applies a status change, running the hook between the
// validity check and the persisted update.
func (s *Service) transition(ctx context.Context, id string, target Status, hook func(context.Context, *Broadcast) error) (*Broadcast, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(target) {
		return nil, ErrInvalidTransition
	}

	if hook != nil {
		if err := hook(ctx, b); err != nil {
			return nil, err
		}
	}

	b.Status = target
	b.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
