package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_OnlySingleForwardStep(t *testing.T) {
	cases := []struct {
		name    string
		current Status
		target  Status
		wantErr error
	}{
		{name: "created to admin", current: GccCreated, target: GccApprovedByAdmin},
		{name: "admin to customer", current: GccApprovedByAdmin, target: GccApprovedByCustomer},
		{name: "invoice approved to payment", current: InvoiceApprovedBy, target: CustomerInvoicePayment},
		{name: "payment to confirmed", current: CustomerInvoicePayment, target: PaymentConfirmed},
		{name: "skip admin", current: GccCreated, target: GccApprovedByCustomer, wantErr: ErrInvalidTransition},
		{name: "backwards", current: GccApprovedByCustomer, target: GccApprovedByAdmin, wantErr: ErrInvalidTransition},
		{name: "same state", current: GccApprovedByAdmin, target: GccApprovedByAdmin, wantErr: ErrInvalidTransition},
		{name: "past terminal", current: PaymentConfirmed, target: Status(0), wantErr: ErrInvalidStatus},
		{name: "unknown target", current: GccCreated, target: Status(42), wantErr: ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Transition(tc.current, tc.target)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestStatus_PipelineIsMonotonic(t *testing.T) {
	current := Initial()
	steps := 0
	for !current.Terminal() {
		next, ok := current.Next()
		require.True(t, ok)
		require.Less(t, int(next), int(current))
		current = next
		steps++
	}
	assert.Equal(t, 10, steps)
	assert.Equal(t, PaymentConfirmed, current)
}

func TestStatus_Reached(t *testing.T) {
	assert.True(t, InvoiceCreated.Reached(GccApprovedByCustomer))
	assert.False(t, GccApprovedByAdmin.Reached(GccApprovedByCustomer))
	assert.True(t, GccApprovedByAdmin.Reached(GccApprovedByAdmin))
}

func TestParse(t *testing.T) {
	s, err := Parse("10")
	require.NoError(t, err)
	assert.Equal(t, GccApprovedByAdmin, s)

	s, err = Parse("gccapprovedbycustomer")
	require.NoError(t, err)
	assert.Equal(t, GccApprovedByCustomer, s)

	_, err = Parse("12")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = Parse("10abc")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatus_JSONUsesStoredInteger(t *testing.T) {
	b, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{Status: GccCreated})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":11}`, string(b))

	var out struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":9}`), &out))
	assert.Equal(t, GccApprovedByCustomer, out.Status)
	assert.Error(t, json.Unmarshal([]byte(`{"status":99}`), &out))
}
