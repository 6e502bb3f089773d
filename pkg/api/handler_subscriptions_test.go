package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

type fakeSubscriptionStore struct {
	created []contracts.Subscription
	enabled map[string]bool
	listErr error
}

func (f *fakeSubscriptionStore) Create(ctx context.Context, sub contracts.Subscription) (contracts.Subscription, error) {
	f.created = append(f.created, sub)
	return sub, nil
}

func (f *fakeSubscriptionStore) ListEnabled(ctx context.Context) ([]contracts.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []contracts.Subscription{{UID: "sub-1", Enabled: true}}, nil
}

func (f *fakeSubscriptionStore) SetEnabled(ctx context.Context, uid string, enabled bool) error {
	if f.enabled == nil {
		f.enabled = map[string]bool{}
	}
	f.enabled[uid] = enabled
	return nil
}

func newTestServer(stores *store.Stores) (*Server, *echo.Echo) {
	e := echo.New()
	return &Server{echo: e, store: stores}, e
}

func TestCreateSubscriptionHandler_Validates(t *testing.T) {
	fake := &fakeSubscriptionStore{}
	s, e := newTestServer(&store.Stores{Subscriptions: fake})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.createSubscriptionHandler(c))
	assert.NotEqual(t, http.StatusCreated, rec.Code)
	assert.Empty(t, fake.created)
}

func TestCreateSubscriptionHandler_Creates(t *testing.T) {
	fake := &fakeSubscriptionStore{}
	s, e := newTestServer(&store.Stores{Subscriptions: fake})

	body := `{"user_id":"u1","sub_type":"case","sub_target":"case-1"}`
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.createSubscriptionHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fake.created, 1)
	assert.Equal(t, "u1", fake.created[0].UserID)
	assert.True(t, fake.created[0].Enabled)
}

func TestListSubscriptionsHandler(t *testing.T) {
	fake := &fakeSubscriptionStore{}
	s, e := newTestServer(&store.Stores{Subscriptions: fake})

	req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.listSubscriptionsHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sub-1")
}

func TestDeleteSubscriptionHandler_SoftDeletes(t *testing.T) {
	fake := &fakeSubscriptionStore{}
	s, e := newTestServer(&store.Stores{Subscriptions: fake})

	req := httptest.NewRequest(http.MethodDelete, "/subscriptions/sub-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("uid")
	c.SetParamValues("sub-1")

	require.NoError(t, s.deleteSubscriptionHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, fake.enabled["sub-1"])
}
