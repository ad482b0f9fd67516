package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

func TestAccountUpdateMergesSettings(t *testing.T) {
	f := newServiceFixture(t)
	registered := f.register(t, "Jane", "jane@example.com")
	svc, err := NewAccountService(f.db, f.audit)
	require.NoError(t, err)
	ctx := context.Background()

	name := "Jane's Bistro"
	account, err := svc.Update(ctx, registered.User.ID, registered.Account.ID, UpdateAccountInput{
		Name:     &name,
		Settings: map[string]any{"currency": "USD", "tax_rate": 8.25},
	})
	require.NoError(t, err)
	require.Equal(t, "Jane's Bistro", account.Name)

	account, err = svc.Update(ctx, registered.User.ID, registered.Account.ID, UpdateAccountInput{
		Settings: map[string]any{"tax_rate": nil, "timezone": "America/New_York"},
	})
	require.NoError(t, err)

	var settings map[string]any
	require.NoError(t, json.Unmarshal(account.Settings, &settings))
	require.Equal(t, map[string]any{"currency": "USD", "timezone": "America/New_York"}, settings)

	blank := ""
	_, err = svc.Update(ctx, registered.User.ID, registered.Account.ID, UpdateAccountInput{Name: &blank})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountDeleteRemovesEverything(t *testing.T) {
	f := newServiceFixture(t)
	jane := f.register(t, "Jane", "jane@example.com")
	john := f.register(t, "John", "john@example.com")
	orders, err := NewOrderService(f.db, nil)
	require.NoError(t, err)
	svc, err := NewAccountService(f.db, f.audit)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = orders.Create(ctx, jane.User.ID, jane.Account.ID, sampleOrderInput())
	require.NoError(t, err)
	_, err = orders.Create(ctx, john.User.ID, john.Account.ID, sampleOrderInput())
	require.NoError(t, err)

	err = svc.Delete(ctx, john.User.ID, jane.Account.ID, RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, jane.User.ID, jane.Account.ID, RequestMeta{}))

	require.EqualValues(t, 1, countRows(t, f.db, &models.Account{}))
	require.EqualValues(t, 1, countRows(t, f.db, &models.User{}))
	require.EqualValues(t, 1, countRows(t, f.db, &models.Order{}))
	require.EqualValues(t, 2, countRows(t, f.db, &models.OrderItem{}))
	require.Empty(t, tokenRowsFor(t, f.db, jane.User.ID))
	require.Len(t, tokenRowsFor(t, f.db, john.User.ID), 1)

	_, err = svc.Get(ctx, jane.Account.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)
}
