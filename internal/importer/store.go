package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
	"dealercrm/internal/storage"
)

const emptyCustomerStore = `{"state":{"customers":[]},"version":0}`

// CustomerStore reads and appends to the persisted customer-store value.
// Fields of the stored document that Customer does not model are kept.
type CustomerStore struct {
	kv     storage.KV
	logger logrus.FieldLogger
}

type StoreOption func(*CustomerStore)

func WithStoreLogger(logger logrus.FieldLogger) StoreOption {
	return func(s *CustomerStore) { s.logger = logger }
}

func NewCustomerStore(kv storage.KV, opts ...StoreOption) *CustomerStore {
	s := &CustomerStore{kv: kv, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Customers lists the stored customers. A record whose fields do not
// match the expected types is read field by field; entries that are not
// objects are skipped with a warning.
func (s *CustomerStore) Customers(ctx context.Context) ([]models.Customer, error) {
	doc, err := s.document(ctx, backup.CustomerStoreKey)
	if err != nil || doc == "" {
		return nil, err
	}
	list := gjson.Get(doc, "state.customers")
	if !list.IsArray() {
		return nil, nil
	}

	var customers []models.Customer
	for i, r := range list.Array() {
		if !r.IsObject() {
			s.logger.WithField("index", i).Warn("Skipping stored customer that is not an object")
			continue
		}
		var c models.Customer
		if err := json.Unmarshal([]byte(r.Raw), &c); err != nil {
			c = lenientCustomer(r)
			s.logger.WithError(err).WithFields(logrus.Fields{"index": i, "id": c.ID}).
				Warn("Stored customer has unexpected field types, reading it leniently")
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// Users lists the accounts held by auth-storage.
func (s *CustomerStore) Users(ctx context.Context) ([]models.User, error) {
	doc, err := s.document(ctx, backup.AuthStoreKey)
	if err != nil || doc == "" {
		return nil, err
	}
	var users []models.User
	if err := decodeArray(doc, "state.users", &users); err != nil {
		return nil, fmt.Errorf("failed to decode stored users: %w", err)
	}
	return users, nil
}

// Append adds customers to the end of the stored list.
func (s *CustomerStore) Append(ctx context.Context, customers []models.Customer) error {
	doc, err := s.document(ctx, backup.CustomerStoreKey)
	if err != nil {
		return err
	}
	if doc == "" || !gjson.Get(doc, "state.customers").IsArray() {
		if doc, err = sjson.SetRaw(orEmpty(doc), "state.customers", "[]"); err != nil {
			return fmt.Errorf("failed to prepare customer store: %w", err)
		}
	}

	for _, c := range customers {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode customer %s: %w", c.ID, err)
		}
		if doc, err = sjson.SetRaw(doc, "state.customers.-1", string(raw)); err != nil {
			return fmt.Errorf("failed to append customer %s: %w", c.ID, err)
		}
	}

	if err := s.kv.Set(ctx, backup.CustomerStoreKey, doc); err != nil {
		return fmt.Errorf("failed to save customers: %w", err)
	}
	return nil
}

func (s *CustomerStore) document(ctx context.Context, key string) (string, error) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	if !gjson.Valid(v) {
		return "", fmt.Errorf("%s does not hold JSON", key)
	}
	return v, nil
}

func decodeArray(doc, path string, dst any) error {
	r := gjson.Get(doc, path)
	if !r.IsArray() {
		return nil
	}
	return json.Unmarshal([]byte(r.Raw), dst)
}

func lenientCustomer(r gjson.Result) models.Customer {
	c := models.Customer{
		ID:                   r.Get("id").String(),
		Name:                 r.Get("name").String(),
		NameKana:             r.Get("nameKana").String(),
		PostalCode:           r.Get("postalCode").String(),
		Address:              r.Get("address").String(),
		Address2:             r.Get("address2").String(),
		Region:               r.Get("region").String(),
		Phone:                r.Get("phone").String(),
		Mobile:               r.Get("mobile").String(),
		AssignedSalesRepID:   r.Get("assignedSalesRepId").String(),
		AssignedSalesRepName: r.Get("assignedSalesRepName").String(),
		Source:               r.Get("source").String(),
		Status:               models.Status(r.Get("status").String()),
		Notes:                r.Get("notes").String(),
		CreatedAt:            lenientTime(r.Get("createdAt")),
		UpdatedAt:            lenientTime(r.Get("updatedAt")),
	}
	if t := lenientTime(r.Get("contractDate")); !t.IsZero() {
		c.ContractDate = &t
	}
	return c
}

var storedDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "2006/01/02"}

// lenientTime accepts RFC 3339, bare dates and epoch milliseconds. Anything
// else is the zero time.
func lenientTime(r gjson.Result) time.Time {
	if r.Type == gjson.Number {
		return time.UnixMilli(r.Int()).UTC()
	}
	v := strings.TrimSpace(r.String())
	if v == "" {
		return time.Time{}
	}
	for _, layout := range storedDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orEmpty(doc string) string {
	if doc == "" {
		return emptyCustomerStore
	}
	return doc
}
