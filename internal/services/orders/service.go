package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/integrations/productsvc"
	"github.com/swiftparcel/delivery/internal/models"
)

type Repository interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
}

type ProductCatalog interface {
	ValidateProduct(ctx context.Context, id uuid.UUID) (productsvc.Validation, error)
}

type CustomerDirectory interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*customersvc.Customer, error)
	GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (*customersvc.Customer, error)
}

type Notifier interface {
	Enqueue(o *models.Order)
}

type Service struct {
	repo      Repository
	catalog   ProductCatalog
	customers CustomerDirectory
	notifier  Notifier
}

func New(repo Repository, catalog ProductCatalog, customers CustomerDirectory, notifier Notifier) *Service {
	return &Service{repo: repo, catalog: catalog, customers: customers, notifier: notifier}
}

type CreateItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
}

type CreateOrderInput struct {
	// CustomerID may be set by privileged callers to place an order for any
	// customer. Regular users always order against their own profile.
	CustomerID      uuid.UUID
	DeliveryAddress string
	Items           []CreateItemInput
}

type UpdateOrderInput struct {
	Status                *string
	DeliveryAddress       *string
	EstimatedDeliveryDate *time.Time
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateOrderInput) (*models.Order, error) {
	if in.DeliveryAddress == "" {
		return nil, apperr.Invalid("deliveryAddress is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Invalid("order must contain at least one item")
	}

	customerID, err := s.resolveCustomer(ctx, p, in.CustomerID)
	if err != nil {
		return nil, err
	}

	items := make([]models.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Invalid("quantity must be positive for product %s", it.ProductID)
		}
		v, err := s.catalog.ValidateProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !v.Exists {
			return nil, apperr.NotFound("product %s does not exist", it.ProductID)
		}
		items = append(items, models.LineItem{
			ProductID:      it.ProductID,
			ProductName:    v.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: v.PriceCents,
		})
	}

	o := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     models.NewOrderNumber(),
		CustomerID:      customerID,
		DeliveryAddress: in.DeliveryAddress,
		Status:          models.OrderStatusPending,
		OrderDate:       time.Now().UTC(),
		Items:           items,
	}
	o.ComputeTotal()

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.notifier.Enqueue(o)
	return o, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, p, o, auth.ActionViewAnyOrder); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetByNumber(ctx context.Context, p auth.Principal, orderNumber string) (*models.Order, error) {
	o, err := s.repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, p, o, auth.ActionViewAnyOrder); err != nil {
		return nil, err
	}
	return o, nil
}

// GetInternal serves trusted service-to-service lookups. Callers are
// authenticated with the shared API key at the transport layer, so no
// ownership check applies here.
func (s *Service) GetInternal(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *Service) GetInternalByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.repo.GetOrderByNumber(ctx, orderNumber)
}

func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]*models.Order, error) {
	cu, err := s.customers.GetCustomerByUserID(ctx, p.UserID)
	if apperr.IsNotFound(err) {
		return []*models.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, cu.ID)
}

func (s *Service) ListAll(ctx context.Context, p auth.Principal, limit, offset int) ([]*models.Order, error) {
	if !p.Allowed(auth.ActionViewAnyOrder) {
		return nil, apperr.Forbidden("listing all orders requires an admin role")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAll(ctx, limit, offset)
}

// Update applies status and delivery changes. Only privileged callers may
// update; the state machine decides which status edges are legal.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateOrderInput) (*models.Order, error) {
	if !p.Allowed(auth.ActionUpdateOrder) {
		return nil, apperr.Forbidden("updating orders requires an admin role")
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		next, err := models.ParseOrderStatus(*in.Status)
		if err != nil {
			return nil, apperr.Invalid("unknown order status %q", *in.Status)
		}
		if !models.CanTransition(o.Status, next) {
			return nil, apperr.InvalidState("cannot move order from %s to %s", o.Status, next)
		}
		o.Status = next
	}
	if in.DeliveryAddress != nil {
		if *in.DeliveryAddress == "" {
			return nil, apperr.Invalid("deliveryAddress cannot be empty")
		}
		o.DeliveryAddress = *in.DeliveryAddress
	}
	if in.EstimatedDeliveryDate != nil {
		o.EstimatedDeliveryDate = in.EstimatedDeliveryDate
	}
	o.ComputeTotal()

	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.notifier.Enqueue(o)
	return o, nil
}

// Cancel is the one mutation customers may perform themselves, and only while
// the order is still PENDING.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, p, o, auth.ActionCancelAnyOrder); err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPending {
		return nil, apperr.InvalidState("only pending orders can be cancelled, order is %s", o.Status)
	}

	o.Status = models.OrderStatusCancelled
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.notifier.Enqueue(o)
	return o, nil
}

func (s *Service) resolveCustomer(ctx context.Context, p auth.Principal, requested uuid.UUID) (uuid.UUID, error) {
	if requested != uuid.Nil && p.Allowed(auth.ActionCreateAnyOrder) {
		cu, err := s.customers.GetCustomerByID(ctx, requested)
		if err != nil {
			return uuid.Nil, err
		}
		return cu.ID, nil
	}

	own, err := s.customers.GetCustomerByUserID(ctx, p.UserID)
	if apperr.IsNotFound(err) {
		return uuid.Nil, apperr.Forbidden("no customer profile for this user")
	}
	if err != nil {
		return uuid.Nil, err
	}
	if requested != uuid.Nil && requested != own.ID {
		return uuid.Nil, apperr.Forbidden("cannot create orders for another customer")
	}
	return own.ID, nil
}

func (s *Service) checkOwnership(ctx context.Context, p auth.Principal, o *models.Order, privileged auth.Action) error {
	if p.Allowed(privileged) {
		return nil
	}
	cu, err := s.customers.GetCustomerByUserID(ctx, p.UserID)
	if apperr.IsNotFound(err) {
		return apperr.Forbidden("order belongs to another customer")
	}
	if err != nil {
		return err
	}
	if cu.ID != o.CustomerID {
		return apperr.Forbidden("order belongs to another customer")
	}
	return nil
}
