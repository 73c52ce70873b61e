package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/apperr"
	"github.com/ManuelReschke/PropKit/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

type fakePayments struct {
	calls   []gateway.PaymentSubscriptionRequest
	id      string
	failErr error
}

func (f *fakePayments) CreateSubscription(ctx context.Context, req gateway.PaymentSubscriptionRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.failErr != nil {
		return "", f.failErr
	}
	return f.id, nil
}

type fixture struct {
	db       *gorm.DB
	store    *repository.Store
	payments *fakePayments
	manager  *Manager
	owner    *models.User
	other    *models.User
	admin    *models.User
	plan     *models.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	payments := &fakePayments{id: "sub_remote_1"}
	return &fixture{
		db:       db,
		store:    store,
		payments: payments,
		manager:  NewManager(store, payments, intent.NewRecorder(store)),
		owner:    dbtest.SeedUser(t, db, "owner", models.ROLE_OWNER),
		other:    dbtest.SeedUser(t, db, "other", models.ROLE_OWNER),
		admin:    dbtest.SeedUser(t, db, "admin", models.ROLE_ADMIN),
		plan:     dbtest.SeedPlan(t, db, "Basic", "50.00"),
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) intents(t *testing.T) []models.ExternalCallIntent {
	t.Helper()
	var out []models.ExternalCallIntent
	require.NoError(t, f.db.Find(&out).Error)
	return out
}

func principal(u *models.User) usercontext.Principal {
	return usercontext.FromUser(u)
}

func TestCreate_ComputesTotalAndAssociations(t *testing.T) {
	f := newFixture(t)
	p1 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat A")
	p2 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat B")

	sub, err := f.manager.Create(context.Background(), CreateInput{
		OwnerID:      f.owner.ID,
		PlanID:       f.plan.ID,
		PropertyIDs:  []uint{p1.ID, p2.ID},
		PaymentToken: "tok_1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionPending, sub.Status)
	assert.True(t, decimal.RequireFromString("100.00").Equal(sub.TotalAmount))
	require.NotNil(t, sub.PagarmeSubscriptionID)
	assert.Equal(t, "sub_remote_1", *sub.PagarmeSubscriptionID)
	assert.Len(t, sub.Properties, 2)
	assert.Equal(t, int64(2), f.count(t, &models.SubscriptionProperty{}))

	repos := f.store.Repositories(context.Background())
	stored, err := repos.Subscription.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", stored.TotalAmount.StringFixed(2))
	linked, err := repos.Subscription.CountProperties(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), linked)

	require.Len(t, f.payments.calls, 1)
	call := f.payments.calls[0]
	assert.Equal(t, "tok_1", call.PaymentToken)
	assert.Equal(t, 2, call.PropertyCount)
	assert.Equal(t, f.owner.Email, call.Customer.Email)
	assert.NotEmpty(t, call.IdempotencyKey)

	intents := f.intents(t)
	require.Len(t, intents, 1)
	assert.Equal(t, models.IntentCompleted, intents[0].Status)
	assert.Equal(t, call.IdempotencyKey, intents[0].Key)
	assert.Equal(t, "sub_remote_1", intents[0].ExternalRef)
}

func TestCreate_ForeignPropertyPersistsNothing(t *testing.T) {
	f := newFixture(t)
	mine := dbtest.SeedProperty(t, f.db, f.owner.ID, "Mine")
	theirs := dbtest.SeedProperty(t, f.db, f.other.ID, "Theirs")

	_, err := f.manager.Create(context.Background(), CreateInput{
		OwnerID:      f.owner.ID,
		PlanID:       f.plan.ID,
		PropertyIDs:  []uint{mine.ID, theirs.ID},
		PaymentToken: "tok_1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, msgPropertiesNotOwned, apperr.Message(err))

	assert.Empty(t, f.payments.calls)
	assert.Zero(t, f.count(t, &models.Subscription{}))
	assert.Zero(t, f.count(t, &models.SubscriptionProperty{}))
}

func TestCreate_UnknownPlan(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat")

	_, err := f.manager.Create(context.Background(), CreateInput{
		OwnerID: f.owner.ID, PlanID: 999, PropertyIDs: []uint{p.ID}, PaymentToken: "tok",
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.payments.calls)
}

func TestCreate_InputValidation(t *testing.T) {
	f := newFixture(t)

	cases := []CreateInput{
		{OwnerID: f.owner.ID, PlanID: f.plan.ID, PaymentToken: "tok"},
		{OwnerID: f.owner.ID, PlanID: f.plan.ID, PropertyIDs: []uint{1, 1}, PaymentToken: "tok"},
		{OwnerID: f.owner.ID, PlanID: f.plan.ID, PropertyIDs: []uint{1}},
		{OwnerID: f.owner.ID, PropertyIDs: []uint{1}, PaymentToken: "tok"},
		{PlanID: f.plan.ID, PropertyIDs: []uint{1}, PaymentToken: "tok"},
	}
	for _, in := range cases {
		_, err := f.manager.Create(context.Background(), in)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput), "input %+v", in)
	}
	assert.Empty(t, f.intents(t))
}

func TestCreate_PaymentFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat")
	f.payments.failErr = &gateway.ProviderError{
		Provider:   "pagarme",
		StatusCode: 422,
		Details:    map[string]any{"payment_method": "invalid"},
	}

	_, err := f.manager.Create(context.Background(), CreateInput{
		OwnerID: f.owner.ID, PlanID: f.plan.ID, PropertyIDs: []uint{p.ID}, PaymentToken: "bad",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrExternalProvider))
	assert.Equal(t, map[string]any{"payment_method": "invalid"}, apperr.Details(err))

	assert.Zero(t, f.count(t, &models.Subscription{}))
	assert.Zero(t, f.count(t, &models.SubscriptionProperty{}))

	intents := f.intents(t)
	require.Len(t, intents, 1)
	assert.Equal(t, models.IntentFailed, intents[0].Status)
}

// A local failure after the provider accepted the subscription is not
// compensated: the remote subscription stays orphaned and only the intent
// record points at it.
func TestCreate_CommitFailureAfterPaymentLeavesOrphan(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat")

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_links", func(tx *gorm.DB) {
		if tx.Statement.Table == "subscription_properties" {
			_ = tx.AddError(errors.New("forced association failure"))
		}
	}))

	_, err := f.manager.Create(context.Background(), CreateInput{
		OwnerID: f.owner.ID, PlanID: f.plan.ID, PropertyIDs: []uint{p.ID}, PaymentToken: "tok",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInternal))

	require.Len(t, f.payments.calls, 1)
	assert.Zero(t, f.count(t, &models.Subscription{}))
	assert.Zero(t, f.count(t, &models.SubscriptionProperty{}))

	intents := f.intents(t)
	require.Len(t, intents, 1)
	assert.Equal(t, models.IntentOrphaned, intents[0].Status)
	assert.Equal(t, "sub_remote_1", intents[0].ExternalRef)
}

func TestUpdate_ReplacesPropertySet(t *testing.T) {
	f := newFixture(t)
	a := dbtest.SeedProperty(t, f.db, f.owner.ID, "A")
	b := dbtest.SeedProperty(t, f.db, f.owner.ID, "B")
	c := dbtest.SeedProperty(t, f.db, f.owner.ID, "C")
	premium := dbtest.SeedPlan(t, f.db, "Premium", "80.00")
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionActive, "sub_x", a.ID)

	updated, err := f.manager.Update(context.Background(), UpdateInput{
		SubscriptionID: sub.ID,
		Requester:      principal(f.owner),
		PlanID:         premium.ID,
		PropertyIDs:    []uint{b.ID, c.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, premium.ID, updated.PlanID)
	assert.Equal(t, "160.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, models.SubscriptionActive, updated.Status)

	var links []models.SubscriptionProperty
	require.NoError(t, f.db.Where("subscription_id = ?", sub.ID).Order("property_id").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, b.ID, links[0].PropertyID)
	assert.Equal(t, c.ID, links[1].PropertyID)
	assert.Empty(t, f.payments.calls)

	linked, err := f.store.Repositories(context.Background()).Subscription.CountProperties(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), linked)
}

func TestUpdate_AdminValidatesAgainstOwner(t *testing.T) {
	f := newFixture(t)
	ownerProp := dbtest.SeedProperty(t, f.db, f.owner.ID, "Owner flat")
	adminProp := dbtest.SeedProperty(t, f.db, f.admin.ID, "Admin flat")
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionPending, "sub_y", ownerProp.ID)

	_, err := f.manager.Update(context.Background(), UpdateInput{
		SubscriptionID: sub.ID,
		Requester:      principal(f.admin),
		PlanID:         f.plan.ID,
		PropertyIDs:    []uint{adminProp.ID},
	})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	updated, err := f.manager.Update(context.Background(), UpdateInput{
		SubscriptionID: sub.ID,
		Requester:      principal(f.admin),
		PlanID:         f.plan.ID,
		PropertyIDs:    []uint{ownerProp.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", updated.TotalAmount.StringFixed(2))
}

func TestUpdate_OtherOwnerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProperty(t, f.db, f.owner.ID, "Flat")
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionPending, "sub_z", p.ID)

	_, err := f.manager.Update(context.Background(), UpdateInput{
		SubscriptionID: sub.ID,
		Requester:      principal(f.other),
		PlanID:         f.plan.ID,
		PropertyIDs:    []uint{p.ID},
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.manager.Update(context.Background(), UpdateInput{
		SubscriptionID: sub.ID,
		Requester:      usercontext.Principal{UserID: f.owner.ID, Role: "guest"},
		PlanID:         f.plan.ID,
		PropertyIDs:    []uint{p.ID},
	})
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestListAndGetRespectAccess(t *testing.T) {
	f := newFixture(t)
	p1 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Owner flat")
	p2 := dbtest.SeedProperty(t, f.db, f.other.ID, "Other flat")
	mine := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionActive, "s1", p1.ID)
	theirs := dbtest.SeedSubscription(t, f.db, f.other.ID, f.plan.ID, models.SubscriptionActive, "s2", p2.ID)
	ctx := context.Background()

	own, err := f.manager.List(ctx, principal(f.owner))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)
	require.Len(t, own[0].Properties, 1)
	assert.Equal(t, p1.ID, own[0].Properties[0].ID)

	all, err := f.manager.List(ctx, principal(f.admin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.manager.Get(ctx, principal(f.owner), theirs.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err := f.manager.Get(ctx, principal(f.admin), theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, got.UserID)
	assert.Len(t, got.Properties, 1)
}
