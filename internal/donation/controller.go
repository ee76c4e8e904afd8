package donation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"donation-console/internal/gateway"
	"donation-console/internal/geolocation"
	"donation-console/internal/session"
	appErrors "donation-console/pkg/errors"
)

// Controller runs the status update workflow over the shared Store.
//
// A draft moves Idle -> DraftOpen -> Submitting -> Idle on success, or back to
// DraftOpen on failure with all user input kept. Results of background work
// (location acquisition, submits) are applied only to the draft that started
// them and only while it is still open.
type Controller struct {
	store         *Store
	backend       Backend
	geo           *geolocation.Service
	maxImageBytes int64
	now           func() time.Time
	log           *zap.Logger

	mu     sync.Mutex
	drafts map[string]*draft
	wg     sync.WaitGroup
}

type ControllerOptions struct {
	MaxImageBytes int64
	Logger        *zap.Logger
}

func NewController(store *Store, backend Backend, geo *geolocation.Service, opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		store:         store,
		backend:       backend,
		geo:           geo,
		maxImageBytes: opts.MaxImageBytes,
		now:           time.Now,
		log:           opts.Logger,
		drafts:        make(map[string]*draft),
	}
}

// Store exposes the shared list.
func (c *Controller) Store() *Store {
	return c.store
}

// List returns the donation list, refetching it when forced, never loaded,
// or invalidated by a realtime notification.
func (c *Controller) List(ctx context.Context, sess *session.Session, force bool) ([]*Donation, error) {
	if force || c.store.NeedsRefresh() {
		gen := c.store.Generation()
		items, err := c.backend.List(ctx, sess)
		if err != nil {
			return nil, err
		}
		c.store.ReplaceAt(gen, items)
	}
	return c.store.Snapshot(), nil
}

// Invalidate marks the list stale; the next List call refetches it.
func (c *Controller) Invalidate() {
	c.store.Invalidate()
}

// OpenDraft starts an update for donationID and immediately starts one
// location acquisition for it.
func (c *Controller) OpenDraft(ctx context.Context, sess *session.Session, donationID int64) (DraftView, error) {
	if sess == nil {
		return DraftView{}, appErrors.ErrUnauthorized
	}

	target, ok := c.store.Get(donationID)
	if !ok {
		if _, err := c.List(ctx, sess, false); err != nil {
			return DraftView{}, err
		}
		if target, ok = c.store.Get(donationID); !ok {
			return DraftView{}, appErrors.ErrDonationNotFound
		}
	}
	if !target.CanUpdate() {
		return DraftView{}, appErrors.ErrDonationNotUpdatable
	}

	dctx, cancel := context.WithCancel(context.Background())
	d := &draft{
		id:       uuid.NewString(),
		owner:    sess.Subject,
		target:   *target,
		next:     target.ImpliedStatus(),
		openedAt: c.now(),
		ctx:      dctx,
		cancel:   cancel,
	}

	c.mu.Lock()
	c.drafts[d.id] = d
	c.startAcquisitionLocked(d)
	v := d.view()
	c.mu.Unlock()

	c.log.Debug("draft opened",
		zap.String("draft_id", d.id),
		zap.Int64("donation_id", donationID),
		zap.String("ci", sess.Subject),
	)
	return v, nil
}

// Draft returns the current state of an open draft.
func (c *Controller) Draft(sess *session.Session, draftID string) (DraftView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	return d.view(), nil
}

// SetNextStatus picks the target status. Backward moves are rejected.
func (c *Controller) SetNextStatus(sess *session.Session, draftID string, status Status) (DraftView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	if !canTransition(d.target.ImpliedStatus(), status) {
		return d.view(), statusError()
	}
	d.next = status
	if !status.RequiresImage() {
		d.imageErr = ""
	}
	return d.view(), nil
}

// SetImage attaches the delivery photo. An invalid file leaves any
// previously attached image in place.
func (c *Controller) SetImage(sess *session.Session, draftID, name string, data []byte) (DraftView, error) {
	img, encErr := EncodeImage(name, data, c.maxImageBytes)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	if encErr != nil {
		msg := msgInvalidImage
		if errors.Is(encErr, appErrors.ErrImageTooLarge) {
			msg = msgImageTooLarge
		}
		d.imageErr = msg
		return d.view(), fmt.Errorf("%w: %w", appErrors.NewFieldError(FieldImage, msg), encErr)
	}
	d.image = img
	d.imageErr = ""
	return d.view(), nil
}

// OverrideLocation places the position by hand. It supersedes any pending
// or previous sensor reading and clears the accuracy indicator.
func (c *Controller) OverrideLocation(sess *session.Session, draftID string, lat, lng float64) (DraftView, error) {
	sample, sErr := c.geo.Override(lat, lng)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	if sErr != nil {
		return d.view(), fmt.Errorf("%w: %w", appErrors.NewFieldError(FieldLocation, "Coordenadas inválidas."), sErr)
	}

	c.stopAcquisitionLocked(d)
	d.location = &sample
	d.locationErr = ""
	c.resolveAddressLocked(d, d.location)
	return d.view(), nil
}

// RetryLocation starts a new sensor acquisition on user request.
func (c *Controller) RetryLocation(sess *session.Session, draftID string) (DraftView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	c.startAcquisitionLocked(d)
	return d.view(), nil
}

// Submit validates the draft and sends the single combined update. On
// success the matching list item is patched and the draft closed. On
// failure the draft stays open with its input intact. A result that arrives
// after the draft was cancelled is dropped and reported as ErrDraftClosed.
func (c *Controller) Submit(sess *session.Session, draftID string) (*Donation, error) {
	c.mu.Lock()
	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if d.submitting {
		c.mu.Unlock()
		return nil, appErrors.ErrSubmitInFlight
	}
	if verr := c.validateLocked(d); verr != nil {
		c.mu.Unlock()
		return nil, verr
	}

	req := UpdateRequest{
		CIUsuario: sess.Subject,
		Estado:    d.next,
		Latitud:   d.location.Latitude,
		Longitud:  d.location.Longitude,
	}
	if d.image != nil {
		data := d.image.DataURL
		req.Imagen = &data
	}
	d.submitting = true
	d.submitErr = ""
	ctx, id, next := d.ctx, d.target.ID, d.next
	c.mu.Unlock()

	res, err := c.backend.Update(ctx, sess, id, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.closed || c.drafts[d.id] != d {
		c.log.Debug("ignoring submit result for closed draft",
			zap.String("draft_id", d.id),
			zap.Bool("failed", err != nil),
		)
		return nil, appErrors.ErrDraftClosed
	}
	d.submitting = false

	if err != nil {
		d.submitErr = gateway.UserMessage(err)
		c.log.Warn("donation status update failed",
			zap.String("draft_id", d.id),
			zap.Int64("donation_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	patched, ok := c.store.PatchByID(id, func(cur Donation) Donation {
		return applyResult(cur, next, res, c.now())
	})
	if !ok {
		// The list was refetched without this item; report the result anyway.
		applied := applyResult(d.target, next, res, c.now())
		patched = &applied
	}
	c.closeLocked(d)

	c.log.Info("donation status updated",
		zap.Int64("donation_id", id),
		zap.String("status", string(next)),
		zap.String("ci", sess.Subject),
		zap.String("event", "donation_status_updated"),
	)
	return patched, nil
}

// Cancel discards the draft, aborting its pending acquisition and any
// in-flight submit request.
func (c *Controller) Cancel(sess *session.Session, draftID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupLocked(sess, draftID)
	if err != nil {
		return err
	}
	c.closeLocked(d)
	return nil
}

// OpenDrafts reports how many drafts are open.
func (c *Controller) OpenDrafts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drafts)
}

// Close cancels every draft and waits for background work to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	for _, d := range c.drafts {
		c.closeLocked(d)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func applyResult(cur Donation, next Status, res *UpdateResult, now time.Time) Donation {
	cur.Status = next
	if next.Terminal() {
		delivered := now
		if res != nil && res.DeliveredAt != nil {
			delivered = *res.DeliveredAt
		}
		cur.DeliveredAt = &delivered
		if res != nil && res.Image != nil {
			img := *res.Image
			cur.Image = &img
		}
	}
	return cur
}

func (c *Controller) validateLocked(d *draft) error {
	if !canTransition(d.target.ImpliedStatus(), d.next) {
		return statusError()
	}
	if d.next.RequiresImage() && d.image == nil {
		d.imageErr = msgImageRequired
		return appErrors.NewFieldError(FieldImage, msgImageRequired)
	}
	d.imageErr = ""
	if !d.location.Valid() {
		d.locationErr = msgLocationRequired
		return appErrors.NewFieldError(FieldLocation, msgLocationRequired)
	}
	return nil
}

func statusError() error {
	return fmt.Errorf("%w: %w", appErrors.NewFieldError(FieldStatus, msgInvalidStatus), appErrors.ErrInvalidTransition)
}

func (c *Controller) lookupLocked(sess *session.Session, draftID string) (*draft, error) {
	if sess == nil {
		return nil, appErrors.ErrUnauthorized
	}
	d, ok := c.drafts[draftID]
	if !ok || d.owner != sess.Subject {
		return nil, appErrors.ErrDraftNotFound
	}
	return d, nil
}

func (c *Controller) closeLocked(d *draft) {
	if d.closed {
		return
	}
	d.closed = true
	c.stopAcquisitionLocked(d)
	d.cancel()
	delete(c.drafts, d.id)
}

func (c *Controller) stopAcquisitionLocked(d *draft) {
	d.acqGen++
	d.refining = false
	if d.acqCancel != nil {
		d.acqCancel()
		d.acqCancel = nil
		c.geo.Release(d.id)
	}
}

func (c *Controller) startAcquisitionLocked(d *draft) {
	c.stopAcquisitionLocked(d)
	d.refining = true
	d.locationErr = ""

	actx, cancel := context.WithCancel(d.ctx)
	d.acqCancel = cancel
	gen := d.acqGen
	c.geo.Expect(d.id)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.acquire(actx, d, gen)
	}()
}

func (c *Controller) acquire(ctx context.Context, d *draft, gen uint64) {
	sample, err := c.geo.Acquire(ctx, d.id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.closed || d.acqGen != gen {
		return
	}
	d.refining = false
	d.acqCancel = nil

	if err != nil {
		d.locationErr = locationMessage(err)
		c.log.Debug("location acquisition failed", zap.String("draft_id", d.id), zap.Error(err))
		return
	}
	d.location = &sample
	d.locationErr = ""
	c.resolveAddressLocked(d, d.location)
}

// resolveAddressLocked looks the address up in the background and stores it
// only if loc is still the draft's current sample.
func (c *Controller) resolveAddressLocked(d *draft, loc *geolocation.Sample) {
	snapshot := *loc
	ctx := d.ctx

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		addr := c.geo.Address(ctx, snapshot)
		if addr == "" {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if !d.closed && d.location == loc {
			d.location.Address = addr
		}
	}()
}

func locationMessage(err error) string {
	switch {
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return msgLocationDenied
	case errors.Is(err, geolocation.ErrTimeout):
		return msgLocationTimeout
	default:
		return msgLocationFailed
	}
}
