package app

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"hotel_backoffice/internal/domain"
)

type CreateAdminInput struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Name     string      `json:"name" validate:"required,max=200"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role `json:"role"`
}

type UpdateAdminInput struct {
	Email    *string      `json:"email" validate:"omitempty,email,max=254"`
	Name     *string      `json:"name" validate:"omitempty,min=1,max=200"`
	Role     *domain.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

// Bootstrap is the configured fallback credential pair used to create the first
// super_admin on an empty directory.
type Bootstrap struct {
	Email    string
	Password string
}

// AdminDirectory manages back-office accounts. Every mutation requires a super_admin
// actor; the role check runs before payload validation.
type AdminDirectory struct {
	repo       domain.AdminRepository
	validate   *validator.Validate
	bootstrap  Bootstrap
	bcryptCost int
}

func NewAdminDirectory(r domain.AdminRepository, v *validator.Validate, b Bootstrap, bcryptCost int) *AdminDirectory {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	b.Email = normalizeEmail(b.Email)
	return &AdminDirectory{repo: r, validate: v, bootstrap: b, bcryptCost: bcryptCost}
}

func (d *AdminDirectory) List(ctx context.Context, actor domain.Identity) ([]domain.Admin, error) {
	if actor.UserID == 0 {
		return nil, domain.Unauthorized("authentication required")
	}
	out, err := d.repo.ListActiveAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Admin{}
	}
	return out, nil
}

func (d *AdminDirectory) Create(ctx context.Context, actor domain.Identity, in CreateAdminInput) (domain.Admin, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Admin{}, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := d.validate.Struct(in); err != nil {
		return domain.Admin{}, validationError(err)
	}
	if in.Role == "" {
		in.Role = domain.RoleAdmin
	}
	if !in.Role.Valid() {
		return domain.Admin{}, domain.Validation("role must be one of admin, super_admin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), d.bcryptCost)
	if err != nil {
		return domain.Admin{}, domain.Internal("could not hash password", err)
	}
	return d.repo.CreateAdmin(ctx, domain.Admin{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         in.Role,
		IsActive:     true,
	})
}

func (d *AdminDirectory) Update(ctx context.Context, actor domain.Identity, id int64, in UpdateAdminInput) (domain.Admin, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Admin{}, err
	}
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if err := d.validate.Struct(in); err != nil {
		return domain.Admin{}, validationError(err)
	}
	if in.Role != nil && !in.Role.Valid() {
		return domain.Admin{}, domain.Validation("role must be one of admin, super_admin")
	}

	cur, err := d.repo.GetAdmin(ctx, id)
	if err != nil {
		return domain.Admin{}, err
	}
	next := cur
	if in.Email != nil {
		next.Email = *in.Email
	}
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Role != nil {
		next.Role = *in.Role
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}

	self := actor.UserID == cur.ID
	if self && next.Role != cur.Role {
		return domain.Admin{}, domain.Conflict("you cannot change your own role")
	}
	if self && !next.IsActive {
		return domain.Admin{}, domain.Conflict("you cannot deactivate your own account")
	}
	if err := d.guardLastSuperAdmin(ctx, cur, next); err != nil {
		return domain.Admin{}, err
	}
	return d.repo.UpdateAdmin(ctx, cur, next)
}

// Delete soft-deletes an admin.
func (d *AdminDirectory) Delete(ctx context.Context, actor domain.Identity, id int64) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	if actor.UserID == id {
		return domain.Conflict("you cannot delete your own account")
	}
	cur, err := d.repo.GetAdmin(ctx, id)
	if err != nil {
		return err
	}
	if !cur.IsActive {
		return domain.NotFound("admin not found")
	}
	next := cur
	next.IsActive = false
	if err := d.guardLastSuperAdmin(ctx, cur, next); err != nil {
		return err
	}
	_, err = d.repo.UpdateAdmin(ctx, cur, next)
	return err
}

// Authenticate checks credentials against active admins. When nothing matches and the
// credentials equal the bootstrap pair, a super_admin is created for that email.
func (d *AdminDirectory) Authenticate(ctx context.Context, email, password string) (domain.Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.Admin{}, domain.Unauthorized("invalid email or password")
	}
	a, err := d.repo.GetActiveAdminByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			return domain.Admin{}, domain.Unauthorized("invalid email or password")
		}
		return a, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Admin{}, err
	}

	if !d.isBootstrap(email, password) {
		return domain.Admin{}, domain.Unauthorized("invalid email or password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return domain.Admin{}, domain.Internal("could not hash password", err)
	}
	created, err := d.repo.CreateAdmin(ctx, domain.Admin{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// An inactive account still holds the email.
			return domain.Admin{}, domain.Unauthorized("invalid email or password")
		}
		return domain.Admin{}, err
	}
	log.Info().Int64("admin_id", created.ID).Str("email", created.Email).Msg("bootstrap super_admin created")
	return created, nil
}

func (d *AdminDirectory) isBootstrap(email, password string) bool {
	return d.bootstrap.Email != "" && d.bootstrap.Password != "" &&
		email == d.bootstrap.Email && password == d.bootstrap.Password
}

// guardLastSuperAdmin rejects the obvious case early. The store repeats the check
// atomically with the write, which is what holds under concurrent requests.
func (d *AdminDirectory) guardLastSuperAdmin(ctx context.Context, cur, next domain.Admin) error {
	if !domain.DropsSuperAdmin(cur, next) {
		return nil
	}
	n, err := d.repo.CountActiveSuperAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.ErrLastSuperAdmin
	}
	return nil
}

func requireSuperAdmin(actor domain.Identity) error {
	if actor.UserID == 0 {
		return domain.Unauthorized("authentication required")
	}
	if !actor.IsSuperAdmin() {
		return domain.Unauthorized("super_admin role required")
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
