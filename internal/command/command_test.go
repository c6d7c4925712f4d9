package command

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/ossms/internal/auth"
	"github.com/erazemk/ossms/internal/db"
	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/notify"
	"github.com/erazemk/ossms/internal/store"
)

type outbox struct {
	mu   sync.Mutex
	msgs []notify.PasswordReset
}

func (o *outbox) SendPasswordReset(_ context.Context, msg notify.PasswordReset) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) last(t *testing.T) notify.PasswordReset {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	return o.msgs[len(o.msgs)-1]
}

type fixture struct {
	svc   *Service
	st    *store.Store
	out   *outbox
	admin *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := store.New(db.NewTestDB(t))
	out := &outbox{}
	ids := identity.New(st, out, identity.Options{BcryptCost: bcrypt.MinCost})
	svc := New(st, ledger.New(st), ids, auth.NewSessions("test-secret", 0), "1.2.3")

	admin, err := ids.CreateUser(context.Background(), identity.NewUser{
		Username: "admin", Password: "password", Email: "admin@ossms.com", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, st: st, out: out, admin: admin}
}

func (f *fixture) supply(t *testing.T, name string, qty, min int) string {
	t.Helper()
	id, err := f.svc.CreateSupply(context.Background(), CreateSupplyRequest{
		UserID: f.admin.ID, Name: name, Quantity: qty, MinQuantity: min, Unit: "pack",
	})
	require.NoError(t, err)
	return id
}

func TestVersion(t *testing.T) {
	f := setup(t)
	assert.Equal(t, AppInfo{Name: "OSSMS", Version: "1.2.3"}, f.svc.Version())
}

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp := f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "password"})
	require.True(t, resp.Success, resp.Error)
	assert.Empty(t, resp.User.PasswordHash)
	assert.NotEmpty(t, resp.Token)
	assert.False(t, resp.ExpiresAt.IsZero())

	u, claims, err := f.svc.Authorize(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, u.ID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	wrongPassword := f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "nope"})
	unknownUser := f.svc.Login(ctx, LoginRequest{Username: "ghost", Password: "nope"})

	assert.False(t, wrongPassword.Success)
	assert.Equal(t, wrongPassword, unknownUser)
	assert.Equal(t, "invalid credentials", unknownUser.Error)

	empty := f.svc.Login(ctx, LoginRequest{})
	assert.False(t, empty.Success)
	assert.Contains(t, empty.Error, "username is required")
}

func TestLogoutRevokesSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	token := f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "password"}).Token

	res := f.svc.Logout(ctx, token)
	require.True(t, res.Success, res.Error)

	_, _, err := f.svc.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.False(t, f.svc.Logout(ctx, "garbage").Success)

	_, _, err = f.svc.Authorize(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorizeDeletedUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, CreateUserRequest{Username: "temp", Password: "secret1", Email: "temp@example.com"})
	require.NoError(t, err)
	token := f.svc.Login(ctx, LoginRequest{Username: "temp", Password: "secret1"}).Token

	_, err = f.svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserCommands(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, CreateUserRequest{Username: "x", Password: "secret1", Email: "not-an-email"})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Public(err), "email must be a valid email address")

	_, err = f.svc.CreateUser(ctx, CreateUserRequest{Username: "x", Password: "secret1", Email: "x@example.com", Role: "owner"})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Public(err), "role must be one of")

	u, err := f.svc.CreateUser(ctx, CreateUserRequest{
		Username: "maria", Password: "secret1", Email: "Maria@Example.com", Role: model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, "maria@example.com", u.Email)

	name := "Maria"
	updated, err := f.svc.UpdateUser(ctx, UpdateUserRequest{ID: u.ID, Firstname: &name})
	require.NoError(t, err)
	assert.Equal(t, "Maria", updated.Firstname)

	short := "abc"
	_, err = f.svc.UpdateUser(ctx, UpdateUserRequest{ID: u.ID, Password: &short})
	assert.ErrorIs(t, err, errs.ErrValidation)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}

	res := f.svc.ChangePassword(ctx, ChangePasswordRequest{UserID: u.ID, CurrentPassword: "wrong", NewPassword: "secret2"})
	assert.False(t, res.Success)
	assert.Equal(t, "current password is incorrect", res.Error)

	res = f.svc.ChangePassword(ctx, ChangePasswordRequest{UserID: u.ID, CurrentPassword: "secret1", NewPassword: "secret2"})
	require.True(t, res.Success, res.Error)
	assert.True(t, f.svc.Login(ctx, LoginRequest{Username: "maria", Password: "secret2"}).Success)

	_, err = f.svc.DeleteUser(ctx, f.admin.ID)
	assert.ErrorIs(t, err, errs.ErrValidation, "last administrator")

	_, err = f.svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSupplyLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cost := decimal.RequireFromString("4.25")
	id, err := f.svc.CreateSupply(ctx, CreateSupplyRequest{
		UserID: f.admin.ID, Name: "Envelopes", Quantity: 100, MinQuantity: 20, Unit: "box", Cost: &cost,
	})
	require.NoError(t, err)

	sup, err := f.svc.GetSupply(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusHigh, sup.Status)
	assert.Equal(t, 12, sup.PiecesPerBulk)
	assert.True(t, sup.Cost.Decimal.Equal(cost))

	qty := 25
	loc := "Cabinet 2"
	msg, err := f.svc.UpdateSupply(ctx, UpdateSupplyRequest{
		ID: id, UserID: f.admin.ID, Quantity: &qty,
		SupplyPatch: model.SupplyPatch{Location: &loc}, StockOutReason: "audit",
	})
	require.NoError(t, err)
	assert.Equal(t, "Supply updated successfully", msg)

	sup, err = f.svc.StockOut(ctx, StockRequest{ID: id, UserID: f.admin.ID, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, 0, sup.Quantity)
	assert.Equal(t, model.StatusLow, sup.Status)

	_, err = f.svc.StockIn(ctx, StockRequest{ID: id, UserID: f.admin.ID, Amount: 0})
	assert.ErrorIs(t, err, errs.ErrValidation)

	lows, err := f.svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)

	msg, err = f.svc.DeleteSupply(ctx, DeleteSupplyRequest{ID: id, UserID: f.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "Supply deleted successfully", msg)

	entries, err := f.svc.ListSupplyHistory(ctx, HistoryRequest{SupplyID: id})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, model.ActionDeleted, entries[0].Action)
	assert.Equal(t, "Envelopes", entries[0].ItemName)
	assert.Equal(t, "admin", entries[0].UserName)

	assert.Equal(t, model.ActionStockOut, entries[1].Action)
	assert.Equal(t, 25, entries[1].Quantity)
	assert.Equal(t, 0, entries[1].NewQuantity)

	assert.Equal(t, model.ActionStockOut, entries[2].Action)
	assert.Equal(t, "audit", entries[2].Notes)
	assert.Equal(t, 75, entries[2].Quantity)

	assert.Equal(t, model.ActionStockIn, entries[3].Action)
	assert.Equal(t, 100, entries[3].NewQuantity)

	_, err = f.svc.GetSupply(ctx, id)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSupplyValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateSupply(ctx, CreateSupplyRequest{UserID: f.admin.ID})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.CreateSupply(ctx, CreateSupplyRequest{UserID: f.admin.ID, Name: "Glue", MinQuantity: -1})
	assert.ErrorIs(t, err, errs.ErrValidation)

	neg := decimal.NewFromInt(-1)
	_, err = f.svc.CreateSupply(ctx, CreateSupplyRequest{UserID: f.admin.ID, Name: "Glue", Cost: &neg})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.CreateSupply(ctx, CreateSupplyRequest{UserID: "nobody", Name: "Glue"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.UpdateSupply(ctx, UpdateSupplyRequest{ID: "missing", UserID: f.admin.ID})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.CreateSupply(ctx, CreateSupplyRequest{UserID: f.admin.ID, Name: "Glue", MinQuantity: ledger.MaxQuantity + 1})
	assert.ErrorIs(t, err, errs.ErrValidation)

	id := f.supply(t, "Tape", 5, 1)
	_, err = f.svc.StockIn(ctx, StockRequest{ID: id, UserID: f.admin.ID, Amount: ledger.MaxQuantity + 1})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "amount must be at most")

	huge := ledger.MaxQuantity + 1
	_, err = f.svc.UpdateSupply(ctx, UpdateSupplyRequest{ID: id, UserID: f.admin.ID, Quantity: &huge})
	assert.ErrorIs(t, err, errs.ErrValidation)

	s, err := f.svc.GetSupply(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Quantity)
}

func TestHistoryPurgeAndRecalculate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.supply(t, "Paper", 5, 10)
	f.supply(t, "Ink", 50, 10)

	entries, err := f.svc.ListSupplyHistory(ctx, HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	msg, err := f.svc.DeleteSupplyHistory(ctx, DeleteHistoryRequest{ID: entries[0].ID, UserID: f.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "History record deleted successfully", msg)

	_, err = f.svc.DeleteSupplyHistory(ctx, DeleteHistoryRequest{ID: entries[0].ID, UserID: f.admin.ID})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.st.Update(ctx, func(q store.Querier) error {
		return store.SetSupplyStatus(ctx, q, a, model.StatusHigh)
	}))
	msg, err = f.svc.RecalculateStockStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Stock status recalculated for 2 items", msg)

	sup, err := f.svc.GetSupply(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLow, sup.Status)
}

func TestPasswordResetFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.True(t, res.Success, "unknown email is not revealed")
	assert.Empty(t, f.out.msgs)

	res = f.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "bad"})
	assert.False(t, res.Success)

	res = f.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "admin@ossms.com"})
	require.True(t, res.Success, res.Error)
	token := f.out.last(t).Token

	res = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "other@example.com", Token: token, NewPassword: "fresh-pass"})
	assert.False(t, res.Success)
	assert.True(t, f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "password"}).Success)

	res = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "admin@ossms.com", Token: token, NewPassword: "fresh-pass"})
	require.True(t, res.Success, res.Error)

	res = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "admin@ossms.com", Token: token, NewPassword: "fresh-pass"})
	assert.False(t, res.Success)
	assert.Equal(t, "reset token already used", res.Error)

	assert.True(t, f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "fresh-pass"}).Success)
}

func TestStorageErrorsAreSanitized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.st.Close())

	_, err := f.svc.ListSupplies(ctx)
	require.ErrorIs(t, err, errs.ErrStorage)
	assert.Equal(t, "storage error", err.Error())

	res := f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "password"})
	assert.False(t, res.Success)
	assert.Equal(t, "storage error", res.Error)
}
