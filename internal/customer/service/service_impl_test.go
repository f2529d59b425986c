package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/internal/customer/repository"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCustomerService(t *testing.T) domain.Service {
	t.Helper()

	db := dbtest.Open(t, &domain.Customer{}, &domain.CustomerSite{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateCustomerValidates(t *testing.T) {
	svc := setupCustomerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Email: "ops@acme.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestResolveSite(t *testing.T) {
	svc := setupCustomerService(t)
	ctx := context.Background()

	acme, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Other", Email: "ops@other.test"})
	require.NoError(t, err)

	site, err := svc.CreateSite(ctx, domain.CreateSiteRequest{CustomerID: acme.ID.String(), Name: "Ikeja plant"})
	require.NoError(t, err)

	customer, resolved, err := svc.ResolveSite(ctx, acme.ID, site.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, customer.ID)
	assert.Equal(t, site.ID, resolved.ID)

	_, _, err = svc.ResolveSite(ctx, other.ID, site.ID)
	assert.ErrorIs(t, err, domain.ErrSiteNotFound)

	_, _, err = svc.ResolveSite(ctx, snowflake.ID(42), site.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = svc.ResolveSite(ctx, 0, site.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListCustomersPages(t *testing.T) {
	svc := setupCustomerService(t)
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name, Email: name + "@gas.test"})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	require.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListCustomerRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.False(t, second.HasMore)

	seen := map[snowflake.ID]bool{}
	for _, c := range append(first.Customers, second.Customers...) {
		seen[c.ID] = true
	}
	assert.Len(t, seen, 3)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageToken: "%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestListAllSitesWalksByID(t *testing.T) {
	svc := setupCustomerService(t)
	ctx := context.Background()

	acme, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)
	for _, name := range []string{"North", "South", "East"} {
		_, err := svc.CreateSite(ctx, domain.CreateSiteRequest{CustomerID: acme.ID.String(), Name: name})
		require.NoError(t, err)
	}

	page, err := svc.ListAllSites(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := svc.ListAllSites(ctx, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "East", rest[0].Name)
}
