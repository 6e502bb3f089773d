package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

type fakeInvestigationStore struct {
	active []contracts.Investigation
}

func (f *fakeInvestigationStore) Create(ctx context.Context, i contracts.Investigation) (contracts.Investigation, error) {
	return i, nil
}
func (f *fakeInvestigationStore) Get(ctx context.Context, uid string) (contracts.Investigation, error) {
	for _, inv := range f.active {
		if inv.UID == uid {
			return inv, nil
		}
	}
	return contracts.Investigation{}, assert.AnError
}
func (f *fakeInvestigationStore) Update(ctx context.Context, i contracts.Investigation) error { return nil }
func (f *fakeInvestigationStore) ListActive(ctx context.Context) ([]contracts.Investigation, error) {
	return f.active, nil
}

func TestListInvestigationsHandler_FiltersByCaseAndStatus(t *testing.T) {
	fake := &fakeInvestigationStore{active: []contracts.Investigation{
		{UID: "i1", CaseUID: "case-a", Status: "running"},
		{UID: "i2", CaseUID: "case-a", Status: "done"},
		{UID: "i3", CaseUID: "case-b", Status: "running"},
	}}
	s, e := newTestServer(&store.Stores{Investigations: fake})

	req := httptest.NewRequest(http.MethodGet, "/api/investigations?case_uid=case-a&status=running", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.listInvestigationsHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"i1"`)
	assert.NotContains(t, rec.Body.String(), `"i2"`)
	assert.NotContains(t, rec.Body.String(), `"i3"`)
}

func TestGetInvestigationHandler_NotFound(t *testing.T) {
	fake := &fakeInvestigationStore{}
	s, e := newTestServer(&store.Stores{Investigations: fake})

	req := httptest.NewRequest(http.MethodGet, "/api/investigations/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("uid")
	c.SetParamValues("missing")

	require.NoError(t, s.getInvestigationHandler(c))
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
