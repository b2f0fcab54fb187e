// Package customer stores customers under customers/{id}.
package customer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/store"
)

const rootPath = "customers"

// Errors returned by the customer directory.
var (
	ErrNameRequired  = fmt.Errorf("%w: name is required", apperr.ErrValidation)
	ErrPhoneRequired = fmt.Errorf("%w: phone is required", apperr.ErrValidation)
	ErrExists        = fmt.Errorf("%w: customer already exists", apperr.ErrValidation)
	ErrNotFound      = fmt.Errorf("%w: customer not found", apperr.ErrNotFound)
)

// ID derives the customer key: the lower-cased name with spaces turned into
// underscores, then an underscore and the phone number.
func ID(name, phone string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	return n + "_" + strings.TrimSpace(phone)
}

// Directory reads and writes customers.
type Directory struct {
	db store.Store
}

// New creates a Directory.
func New(db store.Store) *Directory {
	return &Directory{db: db}
}

func normalize(c model.Customer) (model.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	if c.Name == "" {
		return c, ErrNameRequired
	}
	if c.Phone == "" {
		return c, ErrPhoneRequired
	}
	return c, nil
}

// Create stores a new customer and returns it with its id set.
func (d *Directory) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	c, err := normalize(c)
	if err != nil {
		return model.Customer{}, err
	}
	c.ID = ID(c.Name, c.Phone)

	snap, err := d.db.Get(ctx, store.Join(rootPath, c.ID))
	if err != nil {
		return model.Customer{}, apperr.Persistence("read customer", err)
	}
	if snap.Exists() {
		return model.Customer{}, fmt.Errorf("%w: %s", ErrExists, c.ID)
	}
	if err := d.db.Set(ctx, store.Join(rootPath, c.ID), c); err != nil {
		return model.Customer{}, apperr.Persistence("create customer", err)
	}
	return c, nil
}

// Get reads one customer.
func (d *Directory) Get(ctx context.Context, id string) (model.Customer, error) {
	if id == "" {
		return model.Customer{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	snap, err := d.db.Get(ctx, store.Join(rootPath, id))
	if err != nil {
		return model.Customer{}, apperr.Persistence("read customer", err)
	}
	if !snap.Exists() {
		return model.Customer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var c model.Customer
	if err := snap.Decode(&c); err != nil {
		return model.Customer{}, apperr.Persistence("decode customer", err)
	}
	c.ID = id
	return c, nil
}

// Update overwrites name, phone and address. The id never changes, so orders
// keep pointing at the same customer.
func (d *Directory) Update(ctx context.Context, id string, c model.Customer) (model.Customer, error) {
	c, err := normalize(c)
	if err != nil {
		return model.Customer{}, err
	}
	if _, err := d.Get(ctx, id); err != nil {
		return model.Customer{}, err
	}
	if err := d.db.Set(ctx, store.Join(rootPath, id), c); err != nil {
		return model.Customer{}, apperr.Persistence("update customer", err)
	}
	c.ID = id
	return c, nil
}

// Delete removes the customer. Their orders are left alone.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if _, err := d.Get(ctx, id); err != nil {
		return err
	}
	if err := d.db.Remove(ctx, store.Join(rootPath, id)); err != nil {
		return apperr.Persistence("delete customer", err)
	}
	return nil
}

// List returns customers whose name or phone contains search, ignoring case,
// sorted by name. An empty search returns everyone.
func (d *Directory) List(ctx context.Context, search string) ([]model.Customer, error) {
	snap, err := d.db.Get(ctx, rootPath)
	if err != nil {
		return nil, apperr.Persistence("list customers", err)
	}
	search = strings.ToLower(strings.TrimSpace(search))
	out := []model.Customer{}
	for _, child := range snap.Children() {
		var c model.Customer
		if err := child.Decode(&c); err != nil {
			return nil, apperr.Persistence("decode customer", err)
		}
		c.ID = child.Key()
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
