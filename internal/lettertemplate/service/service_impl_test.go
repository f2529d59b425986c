package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/internal/lettertemplate/repository"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.LetterTemplate{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func intPtr(v int) *int { return &v }

func TestCreateValidatesLetter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Letter: "  ", Status: intPtr(1)})
	assert.Error(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Letter: strings.Repeat("a", 256), Status: intPtr(1)})
	assert.Error(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Letter: "Dear customer"})
	assert.Error(t, err)
}

func TestCreateUpdateDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{Letter: "Please find attached", Status: intPtr(1)})
	require.NoError(t, err)

	letter := "Kindly find attached"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID.String(), Letter: &letter})
	require.NoError(t, err)
	assert.Equal(t, letter, updated.Letter)
	assert.Equal(t, 1, updated.Status)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, letter, got.Letter)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))
	_, err = svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)
}

func TestListFiltersByLetter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, letter := range []string{"Quarterly notice", "Monthly certificate", "Monthly reminder"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Letter: letter, Status: intPtr(1)})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListRequest{Letter: "Monthly"})
	require.NoError(t, err)
	assert.Len(t, resp.LetterTemplates, 2)

	_, err = svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageToken: "garbage"}})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}
