package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/integrations/productsvc"
	"github.com/swiftparcel/delivery/internal/models"
)

type fakeRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *fakeRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) GetOrderByNumber(ctx context.Context, n string) (*models.Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == n {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (r *fakeRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) UpdateOrder(ctx context.Context, o *models.Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return apperr.NotFound("order not found")
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

type fakeCatalog struct {
	products map[uuid.UUID]productsvc.Validation
}

func (c *fakeCatalog) ValidateProduct(ctx context.Context, id uuid.UUID) (productsvc.Validation, error) {
	if v, ok := c.products[id]; ok {
		return v, nil
	}
	return productsvc.Validation{Exists: false, ProductID: id}, nil
}

type fakeDirectory struct {
	byUser map[uuid.UUID]*customersvc.Customer
	byID   map[uuid.UUID]*customersvc.Customer
}

func (d *fakeDirectory) GetCustomerByID(ctx context.Context, id uuid.UUID) (*customersvc.Customer, error) {
	if cu, ok := d.byID[id]; ok {
		return cu, nil
	}
	return nil, apperr.NotFound("customer not found")
}

func (d *fakeDirectory) GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (*customersvc.Customer, error) {
	if cu, ok := d.byUser[userID]; ok {
		return cu, nil
	}
	return nil, apperr.NotFound("customer not found")
}

type fakeNotifier struct {
	enqueued []*models.Order
}

func (n *fakeNotifier) Enqueue(o *models.Order) { n.enqueued = append(n.enqueued, o) }

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	notifier *fakeNotifier

	user  auth.Principal
	admin auth.Principal

	customerID uuid.UUID
	widgetID   uuid.UUID
	gadgetID   uuid.UUID
}

func newFixture() *fixture {
	userID := uuid.New()
	customerID := uuid.New()
	widgetID := uuid.New()
	gadgetID := uuid.New()

	customer := &customersvc.Customer{ID: customerID, UserID: userID, Name: "Ada", Enabled: true}
	dir := &fakeDirectory{
		byUser: map[uuid.UUID]*customersvc.Customer{userID: customer},
		byID:   map[uuid.UUID]*customersvc.Customer{customerID: customer},
	}
	catalog := &fakeCatalog{products: map[uuid.UUID]productsvc.Validation{
		widgetID: {Exists: true, ProductID: widgetID, Name: "Widget", PriceCents: 1000},
		gadgetID: {Exists: true, ProductID: gadgetID, Name: "Gadget", PriceCents: 1500},
	}}

	repo := newFakeRepo()
	n := &fakeNotifier{}
	return &fixture{
		svc:        New(repo, catalog, dir, n),
		repo:       repo,
		notifier:   n,
		user:       auth.Principal{UserID: userID, Role: auth.RoleUser},
		admin:      auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin},
		customerID: customerID,
		widgetID:   widgetID,
		gadgetID:   gadgetID,
	}
}

func (f *fixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), f.user, CreateOrderInput{
		DeliveryAddress: "221B Baker Street",
		Items: []CreateItemInput{
			{ProductID: f.widgetID, Quantity: 2},
			{ProductID: f.gadgetID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	return o
}

func TestCreate_ComputesTotalAndNotifies(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	require.Equal(t, models.OrderStatusPending, o.Status)
	require.Equal(t, f.customerID, o.CustomerID)
	require.Regexp(t, `^ORD-[0-9A-F]{8}$`, o.OrderNumber)
	// 2 x 10.00 + 3 x 15.00 = 65.00
	require.EqualValues(t, 6500, o.TotalAmountCents)
	require.Equal(t, "Widget", o.Items[0].ProductName)
	require.Len(t, f.notifier.enqueued, 1)
}

func TestCreate_UnknownProductRejected(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.user, CreateOrderInput{
		DeliveryAddress: "221B Baker Street",
		Items:           []CreateItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.True(t, apperr.IsNotFound(err))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.user, CreateOrderInput{
		Items: []CreateItemInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), f.user, CreateOrderInput{
		DeliveryAddress: "somewhere",
	})
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), f.user, CreateOrderInput{
		DeliveryAddress: "somewhere",
		Items:           []CreateItemInput{{ProductID: f.widgetID, Quantity: 0}},
	})
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestCreate_ForAnotherCustomerForbiddenForUser(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.user, CreateOrderInput{
		CustomerID:      uuid.New(),
		DeliveryAddress: "somewhere",
		Items:           []CreateItemInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreate_AdminCanOrderForAnyCustomer(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), f.admin, CreateOrderInput{
		CustomerID:      f.customerID,
		DeliveryAddress: "somewhere",
		Items:           []CreateItemInput{{ProductID: f.widgetID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, f.customerID, o.CustomerID)
}

func TestGet_OwnerAndAdminAllowed(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	got, err := f.svc.Get(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)

	_, err = f.svc.Get(context.Background(), f.admin, o.ID)
	require.NoError(t, err)

	stranger := auth.Principal{UserID: uuid.New(), Role: auth.RoleUser}
	_, err = f.svc.Get(context.Background(), stranger, o.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGetByNumber_OwnerAllowed(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	got, err := f.svc.GetByNumber(context.Background(), f.user, o.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)

	stranger := auth.Principal{UserID: uuid.New(), Role: auth.RoleUser}
	_, err = f.svc.GetByNumber(context.Background(), stranger, o.OrderNumber)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(context.Background(), f.admin, uuid.New())
	require.True(t, apperr.IsNotFound(err))
}

func TestListMine_OnlyOwnOrders(t *testing.T) {
	f := newFixture()
	f.createOrder(t)

	mine, err := f.svc.ListMine(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	stranger := auth.Principal{UserID: uuid.New(), Role: auth.RoleUser}
	none, err := f.svc.ListMine(context.Background(), stranger)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestListAll_RequiresAdmin(t *testing.T) {
	f := newFixture()
	f.createOrder(t)

	_, err := f.svc.ListAll(context.Background(), f.user, 10, 0)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	all, err := f.svc.ListAll(context.Background(), f.admin, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestUpdate_StatusTransitions(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	shipped := "SHIPPED"
	upd, err := f.svc.Update(context.Background(), f.admin, o.ID, UpdateOrderInput{Status: &shipped})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusShipped, upd.Status)

	// SHIPPED -> PENDING is not an edge of the state machine.
	pending := "PENDING"
	_, err = f.svc.Update(context.Background(), f.admin, o.ID, UpdateOrderInput{Status: &pending})
	require.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	delivered := "DELIVERED"
	upd, err = f.svc.Update(context.Background(), f.admin, o.ID, UpdateOrderInput{Status: &delivered})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDelivered, upd.Status)
}

func TestUpdate_ForbiddenForUser(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	addr := "new address"
	_, err := f.svc.Update(context.Background(), f.user, o.ID, UpdateOrderInput{DeliveryAddress: &addr})
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdate_AddressOnlyKeepsStatus(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	addr := "742 Evergreen Terrace"
	upd, err := f.svc.Update(context.Background(), f.admin, o.ID, UpdateOrderInput{DeliveryAddress: &addr})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, upd.Status)
	require.Equal(t, addr, upd.DeliveryAddress)
}

func TestCancel_OwnerWhilePending(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	cancelled, err := f.svc.Cancel(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// Terminal: a second cancel is an invalid state, not a no-op.
	_, err = f.svc.Cancel(context.Background(), f.user, o.ID)
	require.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestCancel_ShippedOrderRejected(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	shipped := "SHIPPED"
	_, err := f.svc.Update(context.Background(), f.admin, o.ID, UpdateOrderInput{Status: &shipped})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.admin, o.ID)
	require.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestCancel_StrangerForbiddenBeforeStateCheck(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t)

	stranger := auth.Principal{UserID: uuid.New(), Role: auth.RoleUser}
	_, err := f.svc.Cancel(context.Background(), stranger, o.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
