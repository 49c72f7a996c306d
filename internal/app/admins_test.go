package app_test

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
	"hotel_backoffice/internal/storage/memory"
)

func rootIdentity(t *testing.T, f *fixture) domain.Identity {
	t.Helper()
	a, err := f.admins.Authenticate(context.Background(), " ROOT@hotel.test ", "bootstrap-pass")
	require.NoError(t, err)
	return a.Identity()
}

func TestAuthenticate_BootstrapOnlyOnEmptyDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admins.Authenticate(ctx, "root@hotel.test", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	a, err := f.admins.Authenticate(ctx, "root@hotel.test", "bootstrap-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, a.Role)
	assert.NotEmpty(t, a.PasswordHash)
	assert.NotEqual(t, "bootstrap-pass", a.PasswordHash)

	again, err := f.admins.Authenticate(ctx, "root@hotel.test", "bootstrap-pass")
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID, "second login uses the stored account")

	list, err := f.admins.List(ctx, a.Identity())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAdminMutations_RequireSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := rootIdentity(t, f)

	staff, err := f.admins.Create(ctx, root, app.CreateAdminInput{
		Email: "Staff@Hotel.test", Name: "Staff", Password: "staff-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "staff@hotel.test", staff.Email)
	assert.Equal(t, domain.RoleAdmin, staff.Role)

	_, err = f.admins.List(ctx, domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// a plain admin is rejected even with an invalid payload
	_, err = f.admins.Create(ctx, staff.Identity(), app.CreateAdminInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.admins.Update(ctx, staff.Identity(), root.UserID, app.UpdateAdminInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, f.admins.Delete(ctx, staff.Identity(), root.UserID), domain.ErrUnauthorized)

	_, err = f.admins.Create(ctx, root, app.CreateAdminInput{Email: "staff@hotel.test", Name: "Dup", Password: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.admins.Create(ctx, root, app.CreateAdminInput{Email: "short@hotel.test", Name: "Short", Password: "1234567"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.admins.Authenticate(ctx, "staff@hotel.test", "staff-password")
	require.NoError(t, err)
}

func TestAdminUpdate_SelfGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := rootIdentity(t, f)

	demote := domain.RoleAdmin
	_, err := f.admins.Update(ctx, root, root.UserID, app.UpdateAdminInput{Role: &demote})
	assert.ErrorIs(t, err, domain.ErrConflict)

	off := false
	_, err = f.admins.Update(ctx, root, root.UserID, app.UpdateAdminInput{IsActive: &off})
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.ErrorIs(t, f.admins.Delete(ctx, root, root.UserID), domain.ErrConflict)

	name := "  Night Manager "
	a, err := f.admins.Update(ctx, root, root.UserID, app.UpdateAdminInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Night Manager", a.Name)
}

func TestAdminUpdate_KeepsOneSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := rootIdentity(t, f)

	second, err := f.admins.Create(ctx, root, app.CreateAdminInput{
		Email: "second@hotel.test", Name: "Second", Password: "second-password", Role: domain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	// root demotes the other super_admin: allowed, root remains
	demote := domain.RoleAdmin
	_, err = f.admins.Update(ctx, root, second.ID, app.UpdateAdminInput{Role: &demote})
	require.NoError(t, err)

	// the demoted admin can no longer manage anyone
	demoted, err := f.admins.Authenticate(ctx, "second@hotel.test", "second-password")
	require.NoError(t, err)
	assert.ErrorIs(t, f.admins.Delete(ctx, demoted.Identity(), root.UserID), domain.ErrUnauthorized)

	require.NoError(t, f.admins.Delete(ctx, root, second.ID))
	assert.ErrorIs(t, f.admins.Delete(ctx, root, second.ID), domain.ErrNotFound)

	_, err = f.admins.Authenticate(ctx, "second@hotel.test", "second-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "soft-deleted admins cannot log in")

	list, err := f.admins.List(ctx, root)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// countBarrier holds every CountActiveSuperAdmins caller until all parties have
// counted, so both sides of a mutual delete pass the service-level check.
type countBarrier struct {
	*memory.Store
	arrived sync.WaitGroup
}

func (b *countBarrier) CountActiveSuperAdmins(ctx context.Context) (int, error) {
	n, err := b.Store.CountActiveSuperAdmins(ctx)
	b.arrived.Done()
	b.arrived.Wait()
	return n, err
}

func TestAdminDelete_ConcurrentMutualDeleteKeepsOneSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := rootIdentity(t, f)
	second, err := f.admins.Create(ctx, root, app.CreateAdminInput{
		Email: "second@hotel.test", Name: "Second", Password: "second-password", Role: domain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	store := &countBarrier{Store: f.store}
	store.arrived.Add(2)
	dir := app.NewAdminDirectory(store, app.NewValidator(), app.Bootstrap{}, bcrypt.MinCost)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = dir.Delete(ctx, root, second.ID)
	}()
	go func() {
		defer wg.Done()
		errs[1] = dir.Delete(ctx, second.Identity(), root.UserID)
	}()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrLastSuperAdmin)
			assert.ErrorIs(t, err, domain.ErrConflict)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one of the mutual deletes must lose")

	n, err := f.store.CountActiveSuperAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
