package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"carrental/internal/app/middleware"
	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainnotification "carrental/internal/domain/notification"
	domaintransaction "carrental/internal/domain/transaction"
	domainuser "carrental/internal/domain/user"
	infraoutbox "carrental/internal/infra/outbox"
)

var (
	ErrReadOnlyUnit = errors.New("memory: write in read-only unit")
	ErrUnitClosed   = errors.New("memory: unit already finished")
)

// Store is a process-local backend. Units stage their writes and apply them on commit after
// re-checking every staged booking version, so it behaves like the database backends under
// concurrent modify and cancel.
type Store struct {
	mu            sync.Mutex
	bookings      map[domainbooking.BookingID]*domainbooking.Booking
	transactions  []*domaintransaction.Transaction
	cars          map[domaincars.CarID]*domaincars.Car
	users         map[domainuser.ID]domainuser.Profile
	notifications []domainnotification.Notification
	outbox        []*outboxEntry
	idempotency   map[string]middleware.IdempotencyRecord
	inbox         map[string]struct{}
}

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	claimedBy   string
	lastError   string
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		cars:     make(map[domaincars.CarID]*domaincars.Car),
		users:    make(map[domainuser.ID]domainuser.Profile),

		idempotency: make(map[string]middleware.IdempotencyRecord),
		inbox:       make(map[string]struct{}),
	}
}

// PutCar registers or replaces a car in the catalog.
func (s *Store) PutCar(car *domaincars.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *car
	s.cars[car.ID] = &cp
}

func (s *Store) PutUser(p domainuser.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.ID] = p
}

// Transactions returns a snapshot of committed transaction rows.
func (s *Store) Transactions() []*domaintransaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domaintransaction.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}

// BookingCount reports committed bookings.
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Factory starts units over a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, errors.New("memory: factory missing store")
	}
	return &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		staged:   make(map[domainbooking.BookingID]*stagedBooking),
	}, nil
}

type stagedBooking struct {
	booking *domainbooking.Booking
	base    int64
}

type Unit struct {
	store    *Store
	readOnly bool
	done     bool

	mu            sync.Mutex
	staged        map[domainbooking.BookingID]*stagedBooking
	order         []domainbooking.BookingID
	transactions  []*domaintransaction.Transaction
	notifications []domainnotification.Notification
	marks         []readMark
	records       []appoutbox.EventRecord
}

type readMark struct {
	userID string
	id     string
}

func (u *Unit) Bookings() domainbooking.Repository           { return bookingRepo{u} }
func (u *Unit) Transactions() domaintransaction.Repository   { return transactionRepo{u} }
func (u *Unit) Cars() domaincars.Catalog                     { return catalog{u.store} }
func (u *Unit) Users() domainuser.Directory                  { return directory{u.store} }
func (u *Unit) Notifications() domainnotification.Repository { return notificationRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                     { return unitOutbox{u} }

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return nil
}

// Commit applies staged writes atomically or fails with the first conflict.
func (u *Unit) Commit(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range u.order {
		st := u.staged[id]
		var current int64
		if existing, ok := s.bookings[id]; ok {
			current = existing.Version
		}
		if current != st.base {
			return domainbooking.ErrConcurrentUpdate
		}
	}
	for _, tx := range u.transactions {
		if duplicatePayment(s.transactions, tx) {
			return domaintransaction.ErrDuplicatePayment
		}
	}
	for _, id := range u.order {
		s.bookings[id] = cloneBooking(u.staged[id].booking)
	}
	s.transactions = append(s.transactions, u.transactions...)
	for _, n := range u.notifications {
		if !hasNotification(s.notifications, n.ID) {
			s.notifications = append(s.notifications, n)
		}
	}
	for _, m := range u.marks {
		for i := range s.notifications {
			if s.notifications[i].ID == m.id && s.notifications[i].UserID == m.userID {
				s.notifications[i].Read = true
			}
		}
	}
	now := time.Now().UTC()
	for _, rec := range u.records {
		s.outbox = append(s.outbox, &outboxEntry{record: rec, state: infraoutbox.StateNew, nextAttempt: now})
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if st, ok := r.u.staged[id]; ok {
		return cloneBooking(st.booking), nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	b, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r bookingRepo) Save(_ context.Context, b *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}
	st, staged := r.u.staged[b.ID]
	var expected int64
	if staged {
		expected = st.booking.Version
	} else {
		r.u.store.mu.Lock()
		if existing, ok := r.u.store.bookings[b.ID]; ok {
			expected = existing.Version
		}
		r.u.store.mu.Unlock()
	}
	if b.Version != expected {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	if staged {
		st.booking = cloneBooking(b)
		return nil
	}
	r.u.staged[b.ID] = &stagedBooking{booking: cloneBooking(b), base: expected}
	r.u.order = append(r.u.order, b.ID)
	return nil
}

func (r bookingRepo) ListByUser(_ context.Context, userID string) ([]*domainbooking.Booking, error) {
	return r.u.listBookings(func(b *domainbooking.Booking) bool { return b.UserID == userID }), nil
}

func (r bookingRepo) ListByOwner(_ context.Context, owner domaincars.OwnerID) ([]*domainbooking.Booking, error) {
	return r.u.listBookings(func(b *domainbooking.Booking) bool { return b.CarOwnerID == owner }), nil
}

func (u *Unit) listBookings(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	out := make([]*domainbooking.Booking, 0)
	for id, b := range u.store.bookings {
		if st, ok := u.staged[id]; ok {
			b = st.booking
		}
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	for _, id := range u.order {
		if _, committed := u.store.bookings[id]; committed {
			continue
		}
		if b := u.staged[id].booking; match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

type transactionRepo struct{ u *Unit }

func (r transactionRepo) Insert(_ context.Context, tx *domaintransaction.Transaction) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}
	if duplicatePayment(r.u.transactions, tx) {
		return domaintransaction.ErrDuplicatePayment
	}
	r.u.store.mu.Lock()
	dup := duplicatePayment(r.u.store.transactions, tx)
	r.u.store.mu.Unlock()
	if dup {
		return domaintransaction.ErrDuplicatePayment
	}
	cp := *tx
	r.u.transactions = append(r.u.transactions, &cp)
	return nil
}

func (r transactionRepo) ListByBooking(_ context.Context, bookingID string) ([]*domaintransaction.Transaction, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var out []*domaintransaction.Transaction
	for _, tx := range append(append([]*domaintransaction.Transaction{}, r.u.store.transactions...), r.u.transactions...) {
		if tx.BookingID == bookingID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

type catalog struct{ s *Store }

func (c catalog) ByID(_ context.Context, id domaincars.CarID) (*domaincars.Car, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	car, ok := c.s.cars[id]
	if !ok {
		return nil, domaincars.ErrCarNotFound
	}
	cp := *car
	return &cp, nil
}

func (c catalog) ListByOwner(_ context.Context, owner domaincars.OwnerID) ([]*domaincars.Car, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*domaincars.Car
	for _, car := range c.s.cars {
		if car.OwnerID == owner {
			cp := *car
			out = append(out, &cp)
		}
	}
	return out, nil
}

type directory struct{ s *Store }

func (d directory) ByID(_ context.Context, id domainuser.ID) (*domainuser.Profile, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	p, ok := d.s.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &p, nil
}

type notificationRepo struct{ u *Unit }

func (r notificationRepo) Add(_ context.Context, n domainnotification.Notification) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}
	if hasNotification(r.u.notifications, n.ID) {
		return nil
	}
	r.u.notifications = append(r.u.notifications, n)
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID string) ([]domainnotification.Notification, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var out []domainnotification.Notification
	for _, n := range append(append([]domainnotification.Notification{}, r.u.store.notifications...), r.u.notifications...) {
		if n.UserID != userID {
			continue
		}
		for _, m := range r.u.marks {
			if m.id == n.ID {
				n.Read = true
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, userID, id string) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}
	found := false
	for _, n := range r.u.notifications {
		if n.ID == id && n.UserID == userID {
			found = true
		}
	}
	if !found {
		r.u.store.mu.Lock()
		for _, n := range r.u.store.notifications {
			if n.ID == id && n.UserID == userID {
				found = true
			}
		}
		r.u.store.mu.Unlock()
	}
	if !found {
		return domainnotification.ErrNotFound
	}
	r.u.marks = append(r.u.marks, readMark{userID: userID, id: id})
	return nil
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(_ context.Context, rec appoutbox.EventRecord) error {
	o.u.mu.Lock()
	defer o.u.mu.Unlock()
	if err := o.u.writable(); err != nil {
		return err
	}
	o.u.records = append(o.u.records, rec)
	return nil
}

func duplicatePayment(existing []*domaintransaction.Transaction, tx *domaintransaction.Transaction) bool {
	if tx.Status != domaintransaction.StatusPaid || tx.PaymentRef == "" {
		return false
	}
	for _, other := range existing {
		if other.Status == domaintransaction.StatusPaid && other.PaymentRef == tx.PaymentRef {
			return true
		}
	}
	return false
}

func hasNotification(items []domainnotification.Notification, id string) bool {
	for _, n := range items {
		if n.ID == id {
			return true
		}
	}
	return false
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.ClearEvents()
	return &cp
}
