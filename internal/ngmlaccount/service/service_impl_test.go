package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/repository"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.NgmlAccount{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func validRequest(bank string) domain.CreateRequest {
	return domain.CreateRequest{
		BankName:      bank,
		BankAddress:   "Plot 12, Marina, Lagos",
		AccountName:   "NGML Receivables",
		AccountNumber: "0123456789",
		SortCode:      "058152052",
		TIN:           "12345678-0001",
	}
}

func TestCreateRequiresAllFields(t *testing.T) {
	svc := newService(t)

	req := validRequest("Zenith Bank")
	req.SortCode = "   "
	_, err := svc.Create(context.Background(), req)
	assert.Error(t, err)
}

func TestUpdateRejectsBlankField(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	account, err := svc.Create(ctx, validRequest("Zenith Bank"))
	require.NoError(t, err)

	blank := " "
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: account.ID.String(), BankName: &blank})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "BankName", verrs[0].Field())
	assert.Equal(t, "min", verrs[0].Tag())

	stored, err := svc.GetByID(ctx, account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Zenith Bank", stored.BankName)

	name := "Access Bank"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: account.ID.String(), BankName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Access Bank", updated.BankName)
	assert.Equal(t, "0123456789", updated.AccountNumber)
}

func TestListLikeFiltersAndDefault(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Default(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, validRequest("Zenith Bank"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	latest, err := svc.Create(ctx, validRequest("First Bank of Nigeria"))
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListRequest{ListFilter: domain.ListFilter{BankName: "Bank of"}})
	require.NoError(t, err)
	require.Len(t, resp.NgmlAccounts, 1)
	assert.Equal(t, latest.ID, resp.NgmlAccounts[0].ID)

	def, err := svc.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, def.ID)

	require.NoError(t, svc.Delete(ctx, latest.ID.String()))
	_, err = svc.GetByID(ctx, latest.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
