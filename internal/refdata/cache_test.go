package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
)

type fakeCatalogAdapter struct {
	calls    int
	entities []canonical.Entity
	caps     erp.CapabilitySet
}

func (f *fakeCatalogAdapter) Vendor() erp.Vendor              { return erp.VendorMedware }
func (f *fakeCatalogAdapter) Capabilities() erp.CapabilitySet { return f.caps }
func (f *fakeCatalogAdapter) CreateAppointment(context.Context, canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	panic("not used")
}
func (f *fakeCatalogAdapter) CancelAppointment(context.Context, canonical.CancelAppointmentRequest) error {
	panic("not used")
}
func (f *fakeCatalogAdapter) ConfirmAppointment(context.Context, string) error { panic("not used") }
func (f *fakeCatalogAdapter) RescheduleAppointment(context.Context, canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	panic("not used")
}
func (f *fakeCatalogAdapter) ListAvailableSlots(context.Context, canonical.SlotsRequest) ([]canonical.Slot, error) {
	panic("not used")
}
func (f *fakeCatalogAdapter) ListSchedulesToConfirm(context.Context, canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	panic("not used")
}
func (f *fakeCatalogAdapter) ListReferenceEntities(context.Context, canonical.ReferenceKind) ([]canonical.Entity, error) {
	f.calls++
	return f.entities, nil
}
func (f *fakeCatalogAdapter) GetAppointmentValue(context.Context, canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	panic("not used")
}

type fakeSource struct{ adapter erp.Adapter }

func (f *fakeSource) Adapter(erp.Integration) (erp.Adapter, error) { return f.adapter, nil }

func catalogCaps() erp.CapabilitySet {
	return erp.CapabilitySet{erp.CapListReferenceEntities: true}
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestListPopulatesAndServesFromCache(t *testing.T) {
	adapter := &fakeCatalogAdapter{
		caps:     catalogCaps(),
		entities: []canonical.Entity{{Code: "D-1", Name: "Dr. Reis"}},
	}
	cache := NewCache(testRedis(t), &fakeSource{adapter: adapter}, time.Minute, nil)
	integ := erp.Integration{ID: "int-1"}

	first, err := cache.List(context.Background(), integ, canonical.RefDoctors)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, adapter.calls)

	second, err := cache.List(context.Background(), integ, canonical.RefDoctors)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, adapter.calls, "second read must come from cache")
}

func TestListKeysAreScopedPerIntegrationAndKind(t *testing.T) {
	adapter := &fakeCatalogAdapter{caps: catalogCaps(), entities: []canonical.Entity{{Code: "X"}}}
	cache := NewCache(testRedis(t), &fakeSource{adapter: adapter}, time.Minute, nil)

	_, err := cache.List(context.Background(), erp.Integration{ID: "int-1"}, canonical.RefDoctors)
	require.NoError(t, err)
	_, err = cache.List(context.Background(), erp.Integration{ID: "int-1"}, canonical.RefProcedures)
	require.NoError(t, err)
	_, err = cache.List(context.Background(), erp.Integration{ID: "int-2"}, canonical.RefDoctors)
	require.NoError(t, err)
	assert.Equal(t, 3, adapter.calls)
}

func TestListUnknownKindIsBadRequest(t *testing.T) {
	cache := NewCache(testRedis(t), &fakeSource{}, time.Minute, nil)
	_, err := cache.List(context.Background(), erp.Integration{ID: "int-1"}, "astrology")
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindBadRequest))
}

func TestListMissingCapabilityIsNotImplemented(t *testing.T) {
	adapter := &fakeCatalogAdapter{caps: erp.CapabilitySet{}}
	cache := NewCache(testRedis(t), &fakeSource{adapter: adapter}, time.Minute, nil)
	_, err := cache.List(context.Background(), erp.Integration{ID: "int-1"}, canonical.RefDoctors)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindNotImplemented))
}

func TestListSurvivesRedisOutage(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	srv.Close()

	adapter := &fakeCatalogAdapter{caps: catalogCaps(), entities: []canonical.Entity{{Code: "D-1"}}}
	cache := NewCache(rdb, &fakeSource{adapter: adapter}, time.Minute, nil)

	entities, err := cache.List(context.Background(), erp.Integration{ID: "int-1"}, canonical.RefDoctors)
	require.NoError(t, err)
	require.Len(t, entities, 1)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	adapter := &fakeCatalogAdapter{caps: catalogCaps(), entities: []canonical.Entity{{Code: "D-1"}}}
	cache := NewCache(testRedis(t), &fakeSource{adapter: adapter}, time.Minute, nil)
	integ := erp.Integration{ID: "int-1"}

	_, err := cache.List(context.Background(), integ, canonical.RefDoctors)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(context.Background(), "int-1", canonical.RefDoctors))

	_, err = cache.List(context.Background(), integ, canonical.RefDoctors)
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.calls)
}
