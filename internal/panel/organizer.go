package panel

import (
	"context"
	"errors"

	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/poller"
	"github.com/geocoder89/suiticket/internal/txbuilder"
	"github.com/geocoder89/suiticket/internal/wallet"
	"golang.org/x/sync/errgroup"
)

type Organizer struct {
	deps  Deps
	store *Store
}

func NewOrganizer(deps Deps) *Organizer {
	return &Organizer{deps: deps, store: NewStore()}
}

func (o *Organizer) Snapshot(account string) State { return o.store.Snapshot(account) }

func (o *Organizer) DismissError(account string) State { return o.store.DismissError(account) }

// Disconnect drops the panel state and the cached counter for account.
func (o *Organizer) Disconnect(ctx context.Context, account string) error {
	o.store.Forget(account)
	return o.deps.Counters.Forget(ctx, account)
}

// Load reads the events account organizes and, in parallel, looks for an
// EventCounter it already owns. Counter discovery failures are only logged.
func (o *Organizer) Load(ctx context.Context, account string) (State, error) {
	if account == "" {
		return disconnected(), ErrNotConnected
	}

	o.store.update(account, func(st *State) { st.Loading = true })

	var events []event.Event
	var loadErr error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res := o.deps.Reader.OwnedEvents(gctx, account)
		if !res.OK() {
			loadErr = res.Err
			return nil
		}
		events = event.FilterByOrganizer(res.Data, account)
		return nil
	})

	g.Go(func() error {
		if _, err := o.discoverCounter(gctx, account); err != nil {
			o.deps.logger().WarnContext(gctx, "load event counter failed", "account", account, "err", err)
		}
		return nil
	})

	_ = g.Wait()

	if loadErr != nil {
		return o.store.fail(account, MsgLoadEvents), errors.Join(ErrLoad, loadErr)
	}

	return o.store.update(account, func(st *State) {
		st.Loading = false
		st.Events = events
	}), nil
}

// discoverCounter caches a counter account already owns. It returns "" with
// a nil error only when the ledger answered and there is none.
func (o *Organizer) discoverCounter(ctx context.Context, account string) (string, error) {
	log := o.deps.logger()

	entry, err := o.deps.Counters.Get(ctx, account)
	if err != nil {
		log.WarnContext(ctx, "counter cache read failed", "account", account, "err", err)
	} else if entry.Resolved() {
		return entry.ID, nil
	}

	res := o.deps.Reader.OwnedCounter(ctx, account)
	if !res.OK() {
		return "", res.Err
	}
	if res.Data == "" {
		return "", nil
	}

	if err := o.deps.Counters.Resolve(ctx, account, res.Data); err != nil {
		log.WarnContext(ctx, "counter cache write failed", "account", account, "err", err)
	}
	return res.Data, nil
}

// counterID returns the account's counter, creating one on the ledger only
// when the ledger confirms the account has none.
func (o *Organizer) counterID(ctx context.Context, account string) (string, error) {
	id, err := o.discoverCounter(ctx, account)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	return o.initCounter(ctx, account)
}

func (o *Organizer) initCounter(ctx context.Context, account string) (string, error) {
	log := o.deps.logger()

	call := txbuilder.InitEventCounter(o.deps.Registry)
	digest, err := o.deps.signAndRecord(ctx, account, activity.KindInitCounter, call, "")
	if err != nil {
		return "", err
	}

	block, err := o.deps.Confirmer.Await(ctx, digest)
	if err != nil {
		return "", err
	}

	id, err := poller.CreatedObjectID(block, o.deps.Registry.EventCounterType())
	if err != nil {
		return "", err
	}

	log.InfoContext(ctx, "event counter created", "account", account, "counter_id", id, "digest", digest)

	if err := o.deps.Counters.Resolve(ctx, account, id); err != nil {
		log.WarnContext(ctx, "counter cache write failed", "account", account, "err", err)
	}
	return id, nil
}

// CreateEvent validates form, makes sure account has a counter and submits
// the create-event call. On success the organizer's events are re-read.
func (o *Organizer) CreateEvent(ctx context.Context, account string, form event.Form) (State, error) {
	if account == "" {
		return disconnected(), ErrNotConnected
	}

	if errs := form.Validate(); len(errs) > 0 {
		return o.store.Snapshot(account), &ValidationError{Errors: errs}
	}

	o.store.begin(account)

	counterID, err := o.counterID(ctx, account)
	if err != nil {
		o.deps.logger().ErrorContext(ctx, "prepare event counter failed", "account", account, "err", err)
		return o.store.fail(account, failMessage(MsgCreateEvent, err)), txErr(err)
	}

	call := txbuilder.CreateEvent(o.deps.Registry, form, counterID)
	digest, err := o.deps.signAndRecord(ctx, account, activity.KindCreateEvent, call, counterID)
	if errors.Is(err, wallet.ErrNoDigest) {
		return o.store.fail(account, MsgCreateEvent), txErr(err)
	}
	if err != nil {
		o.deps.logger().ErrorContext(ctx, "create event failed", "account", account, "err", err)
		return o.store.fail(account, failMessage(MsgCreateEvent, err)), txErr(err)
	}

	o.deps.logger().InfoContext(ctx, "event submitted", "account", account, "digest", digest)

	// a failed reload still leaves a created event; the slot is cleared
	_, _ = o.Load(ctx, account)

	return o.store.update(account, func(st *State) {
		st.Loading = false
		st.Error = ""
		st.Digest = digest
	}), nil
}
